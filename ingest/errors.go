// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingest

import (
	"errors"
	"fmt"
)

// A ValidationError reports that a save request is invalid: an unresolvable
// Organization/Origin/Subject reference, a deleted Origin, an AccessMode
// less restrictive than the referenced Fact's, and so on. Batch checks (the
// ACL subject list) accumulate every problem before reporting, so Issues
// may carry more than one.
type ValidationError struct {
	Issues []error
}

func validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Issues: []error{fmt.Errorf(format, args...)}}
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("invalid fact request: %v", e.Issues[0])
	}
	msg := fmt.Sprintf("invalid fact request (%d problems):", len(e.Issues))
	for _, issue := range e.Issues {
		msg += "\n  " + issue.Error()
	}
	return msg
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

// A RetryableError reports a transient coordination failure, such as a
// timeout waiting for the fingerprint lock. It is distinct from validation
// errors: the same request may well succeed if submitted again.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%v failed, retry may succeed: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a RetryableError.
func IsRetryable(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}

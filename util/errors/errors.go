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

// Package errors has small helpers for combining errors.
package errors

import "strings"

// Any returns the first non-nil error of the given errors, or nil if every
// error is nil. It's handy for sequences of fallible steps where only the
// first failure matters, such as write-then-flush-then-close.
func Any(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// A Multi accumulates errors across a batch of checks so that a caller can
// report every problem at once rather than stopping at the first. The zero
// value is ready to use.
type Multi struct {
	errs []error
}

// Add appends err to the accumulated errors. Adding nil is a no-op.
func (m *Multi) Add(err error) {
	if err != nil {
		m.errs = append(m.errs, err)
	}
}

// Err returns the accumulated errors as one error, or nil if none were
// added. If exactly one error was added, it is returned as-is.
func (m *Multi) Err() error {
	switch len(m.errs) {
	case 0:
		return nil
	case 1:
		return m.errs[0]
	}
	return m
}

// Errors returns the accumulated errors.
func (m *Multi) Errors() []error {
	return m.errs
}

func (m *Multi) Error() string {
	msgs := make([]string, len(m.errs))
	for i, err := range m.errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

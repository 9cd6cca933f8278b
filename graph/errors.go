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

package graph

import (
	"errors"
	"fmt"
)

// An UnsupportedError reports an operation the read-only graph does not
// support: element addition, transactions, graph compute, and enumerations
// without IDs (the backing store has no efficient full scan; requiring IDs
// is a design boundary, not an oversight).
type UnsupportedError struct {
	Operation string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("graph does not support %v", e.Operation)
}

// IsUnsupported reports whether err is an UnsupportedError.
func IsUnsupported(err error) bool {
	var unsupported *UnsupportedError
	return errors.As(err, &unsupported)
}

// A NotFoundError reports a vertex or edge that could not be resolved. For
// vertices it deliberately covers both "does not exist" and "exists but
// inaccessible", so that an Object's existence never leaks through error
// differences.
type NotFoundError struct {
	Kind string
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v with id %v does not exist", e.Kind, e.Ref)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// An UnsupportedIDError reports an element reference of a kind the graph
// does not accept. IDs must be UUIDs, UUID strings, or already-materialized
// elements.
type UnsupportedIDError struct {
	ID interface{}
}

func (e *UnsupportedIDError) Error() string {
	return fmt.Sprintf("unsupported element id %v (type %T)", e.ID, e.ID)
}

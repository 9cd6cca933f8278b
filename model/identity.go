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

package model

import (
	"github.com/google/uuid"
)

// An Organization owns Facts and scopes RoleBased access. An Organization
// with Group set is a grouping of other Organizations; its Members reference
// child Organizations (or further groups) by ID. Membership graphs may be
// arbitrarily nested.
type Organization struct {
	ID      uuid.UUID
	Name    string
	Group   bool
	Members []uuid.UUID
}

// IsGroup reports whether the Organization is a grouping of other
// Organizations rather than a concrete one.
func (o *Organization) IsGroup() bool {
	return o.Group
}

// A Subject is an actor that can be granted access through Fact ACL entries.
// A Subject with Group set groups other Subjects by ID.
type Subject struct {
	ID      uuid.UUID
	Name    string
	Group   bool
	Members []uuid.UUID
}

// IsGroup reports whether the Subject is a grouping of other Subjects.
func (s *Subject) IsGroup() bool {
	return s.Group
}

// A Function is a named capability (permission function). Functions are
// identified by name, and a Function with Group set groups other Functions
// by name.
type Function struct {
	Name    string
	Group   bool
	Members []string
}

// IsGroup reports whether the Function is a grouping of other Functions.
func (f *Function) IsGroup() bool {
	return f.Group
}

// An Origin is the authenticated actor or system that asserted a Fact. An
// Origin may belong to an Organization, in which case reading it is scoped
// to that Organization.
type Origin struct {
	ID             uuid.UUID
	Name           string
	OrganizationID uuid.UUID
	Trust          float32
	Deleted        bool
}

// Clone returns a copy of the Origin.
func (o *Origin) Clone() *Origin {
	c := *o
	return &c
}

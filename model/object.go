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

// Package model defines the core data types of the graph: Objects (vertices),
// Facts (edges and meta-edges), and the identity entities (Organizations,
// Subjects, Functions, Origins) that access control is evaluated against.
// Objects and Facts are append-only: once created they are never mutated
// except for the lastSeen refresh and monotonic appends of comments and ACL
// entries.
package model

import (
	"github.com/google/uuid"
)

// An Object is an identity-bearing vertex in the graph, for example an IP
// address or a domain name. Objects are unique by (TypeID, Value) and
// immutable once created.
type Object struct {
	ID     uuid.UUID
	TypeID uuid.UUID
	Value  string
}

// Clone returns a copy of the Object.
func (o *Object) Clone() *Object {
	c := *o
	return &c
}

// An ObjectType names a kind of Object (e.g. "ipv4", "domain") and carries
// the ID Objects reference through Object.TypeID.
type ObjectType struct {
	ID   uuid.UUID
	Name string
}

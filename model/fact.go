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
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AccessMode controls how a Fact's ACL and Organization interact to grant
// read access. The modes form a strict restrictiveness ordering:
// Public < RoleBased < Explicit.
type AccessMode int32

const (
	// Public facts are readable by anyone holding the general view-facts
	// capability.
	Public AccessMode = iota
	// RoleBased facts are readable within the owning Organization, or by
	// Subjects granted an explicit ACL entry.
	RoleBased
	// Explicit facts are readable only by Subjects on the ACL; Organization
	// membership is not sufficient.
	Explicit
)

func (m AccessMode) String() string {
	switch m {
	case Public:
		return "Public"
	case RoleBased:
		return "RoleBased"
	case Explicit:
		return "Explicit"
	}
	return fmt.Sprintf("AccessMode(%d)", int32(m))
}

// LessRestrictiveThan reports whether m grants access to a wider audience
// than other. A meta-Fact may never be less restrictive than the Fact it
// references.
func (m AccessMode) LessRestrictiveThan(other AccessMode) bool {
	return m < other
}

// Flags is a small bit set of per-Fact hints.
type Flags uint32

const (
	// RetractedHint marks a Fact that may have Retraction meta-Facts
	// attached. Facts without this flag are known to have none, which lets
	// retraction checks skip a storage round-trip.
	RetractedHint Flags = 1 << iota
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// A Fact is an immutable, typed statement binding zero, one, or two Objects.
// A Fact bound to two Objects is an edge (or an edge pair when
// Bidirectional); a Fact bound to one Object is a property of that Object; a
// Fact bound to no Objects is a meta-Fact attached to another Fact via
// InReferenceToID.
type Fact struct {
	ID             uuid.UUID
	TypeID         uuid.UUID
	Value          string
	OrganizationID uuid.UUID
	OriginID       uuid.UUID
	AddedByID      uuid.UUID
	AccessMode     AccessMode
	Trust          float32
	Confidence     float32
	Timestamp      time.Time
	// LastSeenTimestamp and LastSeenByID are refreshed when an identical
	// Fact is submitted again; they are the only mutable scalar fields.
	LastSeenTimestamp time.Time
	LastSeenByID      uuid.UUID
	// InReferenceToID links a meta-Fact to its parent Fact. Zero for
	// Object-bound Facts.
	InReferenceToID uuid.UUID
	// SourceObjectID and DestinationObjectID bind the Fact's endpoints.
	// Either or both may be zero.
	SourceObjectID      uuid.UUID
	DestinationObjectID uuid.UUID
	Bidirectional       bool
	Flags               Flags
	ACL                 []FactAclEntry
	Comments            []FactComment
}

// A FactAclEntry grants one Subject read access to a RoleBased or Explicit
// Fact regardless of Organization.
type FactAclEntry struct {
	ID        uuid.UUID
	FactID    uuid.UUID
	SubjectID uuid.UUID
	OriginID  uuid.UUID
	Timestamp time.Time
}

// A FactComment is a free-text annotation appended to a Fact. Comments are
// never edited or removed.
type FactComment struct {
	ID        uuid.UUID
	FactID    uuid.UUID
	Comment   string
	OriginID  uuid.UUID
	Timestamp time.Time
}

// IsMeta reports whether the Fact is a meta-Fact, i.e. attached to another
// Fact rather than bound to Objects.
func (f *Fact) IsMeta() bool {
	return f.InReferenceToID != uuid.Nil
}

// Bindings returns how many Objects the Fact is bound to (0, 1 or 2).
func (f *Fact) Bindings() int {
	n := 0
	if f.SourceObjectID != uuid.Nil {
		n++
	}
	if f.DestinationObjectID != uuid.Nil {
		n++
	}
	return n
}

// InACL reports whether the given Subject has an ACL entry on the Fact.
func (f *Fact) InACL(subjectID uuid.UUID) bool {
	for i := range f.ACL {
		if f.ACL[i].SubjectID == subjectID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the Fact. Stores hand out clones so that
// callers can never reach into shared state.
func (f *Fact) Clone() *Fact {
	c := *f
	if len(f.ACL) > 0 {
		c.ACL = make([]FactAclEntry, len(f.ACL))
		copy(c.ACL, f.ACL)
	}
	if len(f.Comments) > 0 {
		c.Comments = make([]FactComment, len(f.Comments))
		copy(c.Comments, f.Comments)
	}
	return &c
}

// A FactType names a kind of Fact (e.g. "resolve", "mentions") and carries
// the ID Facts reference through Fact.TypeID.
type FactType struct {
	ID   uuid.UUID
	Name string
}

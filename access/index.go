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

// Package access resolves identities and evaluates per-Fact read
// permissions. An Index is built once from an identity snapshot and answers
// hierarchical group membership queries; Credentials are resolved once per
// request from an Index; an Evaluator decides fact/object/origin readability
// from Credentials alone, with no I/O of its own.
package access

import (
	"github.com/google/uuid"

	"github.com/mnemonic-no/grafeo-sub004/model"
)

// A Snapshot is the flat identity collection an Index is built from. It is
// loaded at process start (or on an explicit reload) by a collaborator
// outside this package.
type Snapshot struct {
	Organizations []model.Organization
	Subjects      []model.Subject
	Functions     []model.Function
}

// An Index answers group membership and lookup queries over one identity
// Snapshot. It is immutable after construction and safe for concurrent use.
// Reloading identities means building a new Index, never mutating one in
// place.
type Index struct {
	orgsByID        map[uuid.UUID]*model.Organization
	orgsByName      map[string]*model.Organization
	subjectsByID    map[uuid.UUID]*model.Subject
	functionsByName map[string]*model.Function
	// Reverse membership adjacency, precomputed at build time: for each
	// member, the groups that directly list it.
	orgParents      map[uuid.UUID][]*model.Organization
	subjectParents  map[uuid.UUID][]*model.Subject
	functionParents map[string][]*model.Function
}

// NewIndex builds an Index from the snapshot. Membership references to
// unknown entities are kept as-is and simply resolve to nothing at query
// time; the loader does not validate the membership graph (see the closure
// methods for cycle behavior).
func NewIndex(snap Snapshot) *Index {
	idx := &Index{
		orgsByID:        make(map[uuid.UUID]*model.Organization, len(snap.Organizations)),
		orgsByName:      make(map[string]*model.Organization, len(snap.Organizations)),
		subjectsByID:    make(map[uuid.UUID]*model.Subject, len(snap.Subjects)),
		functionsByName: make(map[string]*model.Function, len(snap.Functions)),
		orgParents:      make(map[uuid.UUID][]*model.Organization),
		subjectParents:  make(map[uuid.UUID][]*model.Subject),
		functionParents: make(map[string][]*model.Function),
	}
	for i := range snap.Organizations {
		org := &snap.Organizations[i]
		idx.orgsByID[org.ID] = org
		idx.orgsByName[org.Name] = org
		for _, member := range org.Members {
			idx.orgParents[member] = append(idx.orgParents[member], org)
		}
	}
	for i := range snap.Subjects {
		sub := &snap.Subjects[i]
		idx.subjectsByID[sub.ID] = sub
		for _, member := range sub.Members {
			idx.subjectParents[member] = append(idx.subjectParents[member], sub)
		}
	}
	for i := range snap.Functions {
		fn := &snap.Functions[i]
		idx.functionsByName[fn.Name] = fn
		for _, member := range fn.Members {
			idx.functionParents[member] = append(idx.functionParents[member], fn)
		}
	}
	return idx
}

// Function returns the Function with the given name, or nil.
func (idx *Index) Function(name string) *model.Function {
	return idx.functionsByName[name]
}

// Organization returns the Organization with the given ID, or nil.
func (idx *Index) Organization(id uuid.UUID) *model.Organization {
	return idx.orgsByID[id]
}

// OrganizationByName returns the Organization with the given name, or nil.
func (idx *Index) OrganizationByName(name string) *model.Organization {
	return idx.orgsByName[name]
}

// Subject returns the Subject with the given ID, or nil.
func (idx *Index) Subject(id uuid.UUID) *model.Subject {
	return idx.subjectsByID[id]
}

// ParentOrganizations returns every group that lists id as a member,
// directly or transitively. An unknown id yields an empty set. The
// membership graph is expected to be a DAG but is not validated; the
// expansion tracks what it has already discovered and never re-expands it,
// so cycles and self-membership terminate.
func (idx *Index) ParentOrganizations(id uuid.UUID) map[uuid.UUID]*model.Organization {
	res := make(map[uuid.UUID]*model.Organization)
	pending := []uuid.UUID{id}
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for _, parent := range idx.orgParents[cur] {
			if _, ok := res[parent.ID]; ok {
				continue
			}
			res[parent.ID] = parent
			pending = append(pending, parent.ID)
		}
	}
	return res
}

// ChildOrganizations returns every Organization reachable by following the
// members of the group identified by id, transitively. If id is unknown or
// not a group the result is empty. Cycle-safe like ParentOrganizations.
func (idx *Index) ChildOrganizations(id uuid.UUID) map[uuid.UUID]*model.Organization {
	res := make(map[uuid.UUID]*model.Organization)
	start, ok := idx.orgsByID[id]
	if !ok || !start.IsGroup() {
		return res
	}
	pending := append([]uuid.UUID(nil), start.Members...)
	expanded := map[uuid.UUID]struct{}{id: {}}
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		org, ok := idx.orgsByID[cur]
		if !ok {
			continue
		}
		res[cur] = org
		if _, done := expanded[cur]; done || !org.IsGroup() {
			continue
		}
		expanded[cur] = struct{}{}
		pending = append(pending, org.Members...)
	}
	return res
}

// ParentSubjects is the Subject analogue of ParentOrganizations.
func (idx *Index) ParentSubjects(id uuid.UUID) map[uuid.UUID]*model.Subject {
	res := make(map[uuid.UUID]*model.Subject)
	pending := []uuid.UUID{id}
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for _, parent := range idx.subjectParents[cur] {
			if _, ok := res[parent.ID]; ok {
				continue
			}
			res[parent.ID] = parent
			pending = append(pending, parent.ID)
		}
	}
	return res
}

// ChildFunctions returns every Function reachable by following the members
// of the function group with the given name, transitively. If the name is
// unknown or not a group the result is empty.
func (idx *Index) ChildFunctions(name string) map[string]*model.Function {
	res := make(map[string]*model.Function)
	start, ok := idx.functionsByName[name]
	if !ok || !start.IsGroup() {
		return res
	}
	pending := append([]string(nil), start.Members...)
	expanded := map[string]struct{}{name: {}}
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		fn, ok := idx.functionsByName[cur]
		if !ok {
			continue
		}
		res[cur] = fn
		if _, done := expanded[cur]; done || !fn.IsGroup() {
			continue
		}
		expanded[cur] = struct{}{}
		pending = append(pending, fn.Members...)
	}
	return res
}

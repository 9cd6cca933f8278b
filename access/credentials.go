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

package access

import (
	"github.com/google/uuid"
)

// Well known capability names checked by the core.
const (
	// ViewFacts is the general capability needed to traverse the graph at
	// all. Public facts are readable by anyone who holds it.
	ViewFacts = "viewFacts"
	// ViewOrigins gates reading Origins; for Origins owned by an
	// Organization it is checked within that Organization's scope.
	ViewOrigins = "viewOrigins"
)

// A Principal is the authenticated actor behind one request, before identity
// resolution.
type Principal struct {
	SubjectID uuid.UUID
	// Name is the display name, used to derive an auto-vivified Origin.
	Name string
	// OrganizationID is the principal's own affiliation.
	OrganizationID uuid.UUID
	// Functions are the capability names granted directly to the
	// principal; granted function groups expand to their members.
	Functions []string
}

// Credentials are a Principal's resolved identity context: the full identity
// set, the readable Organizations and the expanded capability set. They are
// computed once per request via Resolve and then passed down, so that
// permission evaluation during traversal is pure map lookups.
type Credentials struct {
	Principal Principal
	// Identities holds the principal's Subject ID plus every Subject group
	// it belongs to, directly or transitively.
	Identities map[uuid.UUID]struct{}
	// Organizations holds the IDs of every Organization the principal can
	// read RoleBased facts of.
	Organizations map[uuid.UUID]struct{}
	capabilities  map[string]struct{}
}

// Resolve computes Credentials for the principal against the identity index.
// The readable Organization set is the principal's own affiliation, every
// group that affiliation belongs to, and everything reachable inside those
// groups: membership in a group grants visibility across the group's whole
// subtree.
func Resolve(idx *Index, p Principal) *Credentials {
	creds := &Credentials{
		Principal:     p,
		Identities:    make(map[uuid.UUID]struct{}),
		Organizations: make(map[uuid.UUID]struct{}),
		capabilities:  make(map[string]struct{}),
	}
	creds.Identities[p.SubjectID] = struct{}{}
	for id := range idx.ParentSubjects(p.SubjectID) {
		creds.Identities[id] = struct{}{}
	}
	if p.OrganizationID != uuid.Nil {
		creds.Organizations[p.OrganizationID] = struct{}{}
		for id := range idx.ChildOrganizations(p.OrganizationID) {
			creds.Organizations[id] = struct{}{}
		}
		for gid := range idx.ParentOrganizations(p.OrganizationID) {
			creds.Organizations[gid] = struct{}{}
			for id := range idx.ChildOrganizations(gid) {
				creds.Organizations[id] = struct{}{}
			}
		}
	}
	for _, name := range p.Functions {
		creds.capabilities[name] = struct{}{}
		for member := range idx.ChildFunctions(name) {
			creds.capabilities[member] = struct{}{}
		}
	}
	return creds
}

// HasCapability reports whether the principal holds the named capability,
// directly or through a granted function group.
func (c *Credentials) HasCapability(name string) bool {
	_, ok := c.capabilities[name]
	return ok
}

// HasOrgCapability reports whether the principal holds the named capability
// within the given Organization's scope.
func (c *Credentials) HasOrgCapability(name string, orgID uuid.UUID) bool {
	if !c.HasCapability(name) {
		return false
	}
	_, ok := c.Organizations[orgID]
	return ok
}

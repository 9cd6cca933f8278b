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
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mnemonic-no/grafeo-sub004/model"
	"github.com/mnemonic-no/grafeo-sub004/storage"
	"github.com/mnemonic-no/grafeo-sub004/util/parallel"
)

// An AccessDeniedError reports that the principal may not read an entity.
// The entity's identity is included so callers can surface it; Object
// denials are deliberately never reported this way (see Evaluator
// CanReadObject).
type AccessDeniedError struct {
	Kind string
	Ref  string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied to %v %v", e.Kind, e.Ref)
}

// IsAccessDenied reports whether err is an AccessDeniedError.
func IsAccessDenied(err error) bool {
	var denied *AccessDeniedError
	return errors.As(err, &denied)
}

// An Evaluator decides read permission from resolved Credentials. It is a
// pure function of its inputs: the fact/organization/origin checks perform
// no I/O, which keeps traversal filtering cheap under large fan-out. One
// Evaluator serves one request's Credentials.
type Evaluator struct {
	creds *Credentials
}

// NewEvaluator returns an Evaluator for the given Credentials.
func NewEvaluator(creds *Credentials) *Evaluator {
	return &Evaluator{creds: creds}
}

// Credentials returns the Credentials the Evaluator decides for.
func (e *Evaluator) Credentials() *Credentials {
	return e.creds
}

// CanReadFact reports whether the principal may read the Fact. Public facts
// are readable by anyone (the general view-facts capability is checked once
// at the traversal entry point, not here). RoleBased facts require the
// owning Organization or an ACL entry. Explicit facts require an ACL entry;
// Organization membership is not sufficient.
func (e *Evaluator) CanReadFact(f *model.Fact) bool {
	switch f.AccessMode {
	case model.Public:
		return true
	case model.RoleBased:
		if _, ok := e.creds.Organizations[f.OrganizationID]; ok {
			return true
		}
		return e.inACL(f)
	case model.Explicit:
		return e.inACL(f)
	}
	return false
}

func (e *Evaluator) inACL(f *model.Fact) bool {
	for i := range f.ACL {
		if _, ok := e.creds.Identities[f.ACL[i].SubjectID]; ok {
			return true
		}
	}
	return false
}

// MustReadFact is the throwing variant of CanReadFact.
func (e *Evaluator) MustReadFact(f *model.Fact) error {
	if !e.CanReadFact(f) {
		return &AccessDeniedError{Kind: "fact", Ref: f.ID.String()}
	}
	return nil
}

// CanReadObject reports whether the principal may read the Object: true iff
// at least one Fact bound to it is readable. It enumerates the Object's
// facts through the given lister and stops at the first readable one.
// Callers must treat a false result exactly like a missing Object; an
// Object's existence must not leak through permission errors.
func (e *Evaluator) CanReadObject(ctx context.Context, obj *model.Object, facts storage.ObjectFactLister) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	resCh := make(chan *model.Fact, 16)
	wait := parallel.GoCaptureError(func() error {
		return facts.ObjectFacts(ctx, obj.ID, resCh)
	})
	readable := false
	for f := range resCh {
		if !readable && e.CanReadFact(f) {
			readable = true
			// Stop the producer; keep draining so it can exit.
			cancel()
		}
	}
	err := wait()
	if readable {
		return true, nil
	}
	return false, err
}

// CanReadOrganization reports whether the principal may read facts owned by
// the Organization.
func (e *Evaluator) CanReadOrganization(orgID uuid.UUID) bool {
	_, ok := e.creds.Organizations[orgID]
	return ok
}

// MustReadOrganization is the throwing variant of CanReadOrganization.
func (e *Evaluator) MustReadOrganization(orgID uuid.UUID) error {
	if !e.CanReadOrganization(orgID) {
		return &AccessDeniedError{Kind: "organization", Ref: orgID.String()}
	}
	return nil
}

// CanReadOrigin reports whether the principal may read the Origin. Origins
// owned by an Organization are checked within that Organization's scope;
// unowned Origins need only the general capability.
func (e *Evaluator) CanReadOrigin(o *model.Origin) bool {
	if o.OrganizationID != uuid.Nil {
		return e.creds.HasOrgCapability(ViewOrigins, o.OrganizationID)
	}
	return e.creds.HasCapability(ViewOrigins)
}

// MustReadOrigin is the throwing variant of CanReadOrigin.
func (e *Evaluator) MustReadOrigin(o *model.Origin) error {
	if !e.CanReadOrigin(o) {
		return &AccessDeniedError{Kind: "origin", Ref: o.ID.String()}
	}
	return nil
}

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
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mnemonic-no/grafeo-sub004/access"
	"github.com/mnemonic-no/grafeo-sub004/model"
	"github.com/mnemonic-no/grafeo-sub004/util/errors"
)

// resolveOrigin decides which Origin asserts the Fact. An explicitly named
// Origin must exist, must not be deleted, and must be readable by the
// principal. With no explicit Origin the principal asserts under its own
// Origin, which shares the Subject's ID and is created on first use.
func (c *Coordinator) resolveOrigin(ctx context.Context, eval *access.Evaluator,
	creds *access.Credentials, req Request,
) (*model.Origin, error) {
	var origin *model.Origin
	var err error
	switch {
	case req.OriginID != uuid.Nil:
		origin, err = c.store.Origin(ctx, req.OriginID)
		if err != nil {
			return nil, err
		}
		if origin == nil {
			return nil, validationf("origin %v does not exist", req.OriginID)
		}
	case req.OriginName != "":
		origin, err = c.store.OriginByName(ctx, req.OriginName)
		if err != nil {
			return nil, err
		}
		if origin == nil {
			return nil, validationf("origin %q does not exist", req.OriginName)
		}
	default:
		return c.ownOrigin(ctx, creds)
	}
	if origin.Deleted {
		return nil, validationf("origin %q is deleted", origin.Name)
	}
	if err := eval.MustReadOrigin(origin); err != nil {
		return nil, err
	}
	return origin, nil
}

// ownOrigin returns the principal's personal Origin, creating it if this is
// the principal's first assertion. Creation is serialized per Subject. The
// principal can always assert under its own Origin, so there is no read
// check here.
func (c *Coordinator) ownOrigin(ctx context.Context, creds *access.Credentials) (*model.Origin, error) {
	subjectID := creds.Principal.SubjectID
	origin, err := c.store.Origin(ctx, subjectID)
	if err != nil || origin != nil {
		return origin, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, c.lockWait)
	defer cancel()
	release, err := c.locks.Acquire(lockCtx, "origin\x00"+subjectID.String())
	if err != nil {
		return nil, &RetryableError{Op: "acquiring origin lock", Err: err}
	}
	defer release()

	origin, err = c.store.Origin(ctx, subjectID)
	if err != nil || origin != nil {
		return origin, err
	}
	name := creds.Principal.Name
	if clash, err := c.store.OriginByName(ctx, name); err != nil {
		return nil, err
	} else if clash != nil {
		// An unrelated Origin already took the Subject's name. The
		// personal Origin still gets created, under a disambiguated name.
		name = fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])
	}
	origin, err = c.store.StoreOrigin(ctx, &model.Origin{
		ID:             subjectID,
		Name:           name,
		OrganizationID: creds.Principal.OrganizationID,
		Trust:          c.defaultTrust,
	})
	if err != nil {
		return nil, err
	}
	metrics.originsCreated.Inc()
	logrus.WithFields(logrus.Fields{
		"origin":  origin.ID,
		"subject": subjectID,
	}).Info("created origin for subject")
	return origin, nil
}

// resolveOrganization decides which Organization owns the Fact: an explicit
// Organization from the request, else the Origin's Organization, else the
// principal's own affiliation.
func (c *Coordinator) resolveOrganization(eval *access.Evaluator,
	creds *access.Credentials, req Request, origin *model.Origin,
) (uuid.UUID, error) {
	var orgID uuid.UUID
	switch {
	case req.OrganizationID != uuid.Nil:
		if c.index.Organization(req.OrganizationID) == nil {
			return uuid.Nil, validationf("organization %v does not exist", req.OrganizationID)
		}
		orgID = req.OrganizationID
	case req.OrganizationName != "":
		org := c.index.OrganizationByName(req.OrganizationName)
		if org == nil {
			return uuid.Nil, validationf("organization %q does not exist", req.OrganizationName)
		}
		orgID = org.ID
	case origin.OrganizationID != uuid.Nil:
		orgID = origin.OrganizationID
	case creds.Principal.OrganizationID != uuid.Nil:
		orgID = creds.Principal.OrganizationID
	default:
		return uuid.Nil, validationf("no organization for fact: request, origin and subject all have none")
	}
	if err := eval.MustReadOrganization(orgID); err != nil {
		return uuid.Nil, err
	}
	return orgID, nil
}

// resolveAccessMode decides the Fact's AccessMode and, for a meta-Fact,
// loads and returns the referenced Fact. A meta-Fact inherits its
// referent's mode when none is requested and may never be less restrictive
// than the referent: a Public annotation on an Explicit Fact would leak its
// existence.
func (c *Coordinator) resolveAccessMode(ctx context.Context, eval *access.Evaluator,
	req Request,
) (model.AccessMode, *model.Fact, error) {
	if req.InReferenceToID == uuid.Nil {
		if req.AccessMode == nil {
			return model.RoleBased, nil, nil
		}
		return *req.AccessMode, nil, nil
	}
	ref, err := c.store.Fact(ctx, req.InReferenceToID)
	if err != nil {
		return 0, nil, err
	}
	if ref == nil {
		return 0, nil, validationf("referenced fact %v does not exist", req.InReferenceToID)
	}
	if err := eval.MustReadFact(ref); err != nil {
		return 0, nil, err
	}
	if req.AccessMode == nil {
		return ref.AccessMode, ref, nil
	}
	if req.AccessMode.LessRestrictiveThan(ref.AccessMode) {
		return 0, nil, validationf("access mode %v is less restrictive than referenced fact's %v",
			*req.AccessMode, ref.AccessMode)
	}
	return *req.AccessMode, ref, nil
}

// validateACLSubjects checks that every requested ACL Subject exists,
// reporting all unresolvable ones at once. The returned list is
// de-duplicated. Public Facts carry no ACL, so the list is discarded for
// those.
func (c *Coordinator) validateACLSubjects(subjectIDs []uuid.UUID, mode model.AccessMode) ([]uuid.UUID, error) {
	if mode == model.Public || len(subjectIDs) == 0 {
		return nil, nil
	}
	var issues errors.Multi
	seen := make(map[uuid.UUID]bool, len(subjectIDs))
	valid := make([]uuid.UUID, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if c.index.Subject(id) == nil {
			issues.Add(fmt.Errorf("acl subject %v does not exist", id))
			continue
		}
		valid = append(valid, id)
	}
	if errs := issues.Errors(); len(errs) > 0 {
		return nil, &ValidationError{Issues: errs}
	}
	return valid, nil
}

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

// Package ingest handles requests to grow the graph. The Coordinator
// resolves the Organization, Origin and ACL for a new Fact, then
// deduplicates against an existing identical Fact by content fingerprint
// under a per-fingerprint lock: concurrent submissions of the same logical
// Fact serialize so that exactly one Fact is created and later submissions
// merge into it.
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/mnemonic-no/grafeo-sub004/access"
	"github.com/mnemonic-no/grafeo-sub004/config"
	"github.com/mnemonic-no/grafeo-sub004/model"
	"github.com/mnemonic-no/grafeo-sub004/storage"
	"github.com/mnemonic-no/grafeo-sub004/util/clocks"
	"github.com/mnemonic-no/grafeo-sub004/util/locks"
)

// Store is the subset of storage.Store ingestion needs. This makes it
// easier to write unit tests.
type Store interface {
	storage.ObjectLookup
	storage.ObjectWriter
	storage.FactLookup
	storage.FactWriter
	storage.FactAppender
	storage.ExistingFactLookup
	storage.OriginLookup
	storage.OriginWriter
	storage.TypeLookup
}

// Options tune a Coordinator. The zero value gives the wall clock, a
// default origin trust of 0.8 and a 10 second lock wait.
type Options struct {
	// Clock stamps new Facts and lastSeen refreshes.
	Clock clocks.Source
	// DefaultOriginTrust is assigned to auto-vivified Origins.
	DefaultOriginTrust float32
	// LockWait bounds the wait for the per-fingerprint lock; exceeding it
	// is a RetryableError.
	LockWait time.Duration
}

// A Coordinator ingests Facts. It is long-lived and safe for concurrent
// use; per-request identity arrives as Credentials on each call.
type Coordinator struct {
	store        Store
	index        *access.Index
	locks        *locks.Keyed
	clock        clocks.Source
	defaultTrust float32
	lockWait     time.Duration
}

// A Request describes one Fact (or meta-Fact) to save. Object bindings are
// given by ID; use ResolveObject first when starting from (type, value)
// pairs.
type Request struct {
	TypeID uuid.UUID
	Value  string
	// SourceObjectID/DestinationObjectID bind the Fact's endpoints; both
	// zero for a meta-Fact.
	SourceObjectID      uuid.UUID
	DestinationObjectID uuid.UUID
	Bidirectional       bool
	// InReferenceToID makes this a meta-Fact of the referenced Fact.
	InReferenceToID uuid.UUID
	// OrganizationID or OrganizationName name the owning Organization
	// explicitly; when both are zero the Origin's Organization and then
	// the principal's own affiliation are used, in that order.
	OrganizationID   uuid.UUID
	OrganizationName string
	// OriginID or OriginName name the asserting Origin explicitly; when
	// both are zero the principal's own Origin is used, auto-vivified on
	// first use.
	OriginID   uuid.UUID
	OriginName string
	// AccessMode nil means: inherit the referenced Fact's mode for
	// meta-Facts, RoleBased otherwise.
	AccessMode *model.AccessMode
	Confidence float32
	// Comment is appended to the Fact; blank is a no-op.
	Comment string
	// ACLSubjectIDs grant the listed Subjects access. Ignored for Public
	// Facts, which never carry an ACL.
	ACLSubjectIDs []uuid.UUID
}

// OptionsFromConfig builds Options from the loaded configuration. Values
// the configuration leaves unset keep the zero value, which NewCoordinator
// turns into the built-in defaults.
func OptionsFromConfig(cfg *config.Grafeo) Options {
	opts := Options{}
	if cfg == nil || cfg.Ingest == nil {
		return opts
	}
	opts.DefaultOriginTrust = cfg.Ingest.DefaultOriginTrust
	opts.LockWait = cfg.Ingest.LockWait()
	return opts
}

// NewCoordinator returns a Coordinator over the given store and identity
// index.
func NewCoordinator(store Store, index *access.Index, opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = clocks.Wall
	}
	if opts.DefaultOriginTrust == 0 {
		opts.DefaultOriginTrust = 0.8
	}
	if opts.LockWait == 0 {
		opts.LockWait = 10 * time.Second
	}
	return &Coordinator{
		store:        store,
		index:        index,
		locks:        locks.NewKeyed(),
		clock:        opts.Clock,
		defaultTrust: opts.DefaultOriginTrust,
		lockWait:     opts.LockWait,
	}
}

// SaveFact saves the requested Fact for the principal behind creds. If an
// identical Fact (same fingerprint) already exists, the request merges into
// it: ACL additions and the comment are applied and the lastSeen fields
// refreshed. Otherwise a new Fact is persisted with the ACL and comment
// already applied. The check-then-act sequence runs under a lock scoped to
// the Fact's fingerprint, so concurrent identical submissions yield exactly
// one stored Fact.
func (c *Coordinator) SaveFact(ctx context.Context, creds *access.Credentials, req Request) (*model.Fact, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SaveFact")
	defer span.Finish()
	eval := access.NewEvaluator(creds)

	factType, err := c.store.FactType(ctx, req.TypeID)
	if err != nil {
		return nil, err
	}
	if factType == nil {
		return nil, validationf("fact type %v does not exist", req.TypeID)
	}

	origin, err := c.resolveOrigin(ctx, eval, creds, req)
	if err != nil {
		return nil, err
	}
	orgID, err := c.resolveOrganization(eval, creds, req, origin)
	if err != nil {
		return nil, err
	}
	mode, refFact, err := c.resolveAccessMode(ctx, eval, req)
	if err != nil {
		return nil, err
	}
	aclSubjects, err := c.validateACLSubjects(req.ACLSubjectIDs, mode)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	candidate := &model.Fact{
		ID:                  uuid.New(),
		TypeID:              req.TypeID,
		Value:               req.Value,
		OrganizationID:      orgID,
		OriginID:            origin.ID,
		AddedByID:           creds.Principal.SubjectID,
		AccessMode:          mode,
		Trust:               origin.Trust,
		Confidence:          req.Confidence,
		Timestamp:           now,
		LastSeenTimestamp:   now,
		LastSeenByID:        creds.Principal.SubjectID,
		InReferenceToID:     req.InReferenceToID,
		SourceObjectID:      req.SourceObjectID,
		DestinationObjectID: req.DestinationObjectID,
		Bidirectional:       req.Bidirectional,
	}
	fingerprint := candidate.Fingerprint()
	span.SetTag("fingerprint", fingerprint[:8])
	logger := logrus.WithFields(logrus.Fields{
		"factType":    factType.Name,
		"fingerprint": fingerprint[:8],
	})

	// Strictly bracket the check-then-act: the lock is held for the
	// existence check and the resulting write, nothing else, and released
	// on every exit path.
	lockCtx, cancel := context.WithTimeout(ctx, c.lockWait)
	defer cancel()
	release, err := c.locks.Acquire(lockCtx, fingerprint)
	if err != nil {
		return nil, &RetryableError{Op: "acquiring fact fingerprint lock", Err: err}
	}
	defer release()

	existing, err := c.store.ExistingFact(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		refreshed, err := c.mergeIntoExisting(ctx, creds, existing, aclSubjects, req.Comment, origin, now)
		if err != nil {
			return nil, err
		}
		metrics.factsRefreshed.Inc()
		logger.WithField("fact", refreshed.ID).Debug("refreshed existing fact")
		return refreshed, nil
	}

	c.applyACL(candidate, aclSubjects, creds, origin, now)
	if comment := strings.TrimSpace(req.Comment); comment != "" {
		candidate.Comments = append(candidate.Comments, model.FactComment{
			ID:        uuid.New(),
			FactID:    candidate.ID,
			Comment:   comment,
			OriginID:  origin.ID,
			Timestamp: now,
		})
	}
	stored, err := c.store.StoreFact(ctx, candidate)
	if err != nil {
		return nil, err
	}
	// A new Retraction flags its target so retraction checks know to look.
	if refFact != nil && stored.TypeID == model.RetractionTypeID {
		if err := c.store.FlagFact(ctx, refFact.ID, model.RetractedHint); err != nil {
			return nil, err
		}
	}
	metrics.factsCreated.Inc()
	logger.WithField("fact", stored.ID).Debug("stored new fact")
	return stored, nil
}

// mergeIntoExisting applies the request's ACL additions and comment to the
// existing Fact and refreshes its lastSeen fields. Runs under the
// fingerprint lock.
func (c *Coordinator) mergeIntoExisting(ctx context.Context, creds *access.Credentials,
	existing *model.Fact, aclSubjects []uuid.UUID, comment string,
	origin *model.Origin, now time.Time,
) (*model.Fact, error) {
	merged := existing.Clone()
	c.applyACL(merged, aclSubjects, creds, origin, now)
	if added := merged.ACL[len(existing.ACL):]; len(added) > 0 {
		if err := c.store.AddFactACL(ctx, existing.ID, added); err != nil {
			return nil, err
		}
	}
	if trimmed := strings.TrimSpace(comment); trimmed != "" {
		err := c.store.AddFactComment(ctx, existing.ID, model.FactComment{
			ID:        uuid.New(),
			FactID:    existing.ID,
			Comment:   trimmed,
			OriginID:  origin.ID,
			Timestamp: now,
		})
		if err != nil {
			return nil, err
		}
	}
	return c.store.RefreshFact(ctx, &model.Fact{
		ID:                existing.ID,
		LastSeenTimestamp: now,
		LastSeenByID:      creds.Principal.SubjectID,
	})
}

// applyACL adds the requested Subjects to the Fact's ACL, idempotently:
// Subjects already present are skipped, Public Facts never carry an ACL,
// and an Explicit Fact always includes the acting principal.
func (c *Coordinator) applyACL(fact *model.Fact, aclSubjects []uuid.UUID,
	creds *access.Credentials, origin *model.Origin, now time.Time,
) {
	if fact.AccessMode == model.Public {
		return
	}
	grant := aclSubjects
	if fact.AccessMode == model.Explicit {
		grant = append(append([]uuid.UUID(nil), aclSubjects...), creds.Principal.SubjectID)
	}
	for _, subjectID := range grant {
		if fact.InACL(subjectID) {
			continue
		}
		fact.ACL = append(fact.ACL, model.FactAclEntry{
			ID:        uuid.New(),
			FactID:    fact.ID,
			SubjectID: subjectID,
			OriginID:  origin.ID,
			Timestamp: now,
		})
	}
}

// ResolveObject returns the Object with the given type and value, creating
// it if it does not exist yet. Creation is serialized per (type, value) so
// concurrent resolvers agree on one Object.
func (c *Coordinator) ResolveObject(ctx context.Context, typeID uuid.UUID, value string) (*model.Object, error) {
	objType, err := c.store.ObjectType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if objType == nil {
		return nil, validationf("object type %v does not exist", typeID)
	}
	lockCtx, cancel := context.WithTimeout(ctx, c.lockWait)
	defer cancel()
	release, err := c.locks.Acquire(lockCtx, "object\x00"+typeID.String()+"\x00"+value)
	if err != nil {
		return nil, &RetryableError{Op: "acquiring object lock", Err: err}
	}
	defer release()

	obj, err := c.store.ObjectByValue(ctx, typeID, value)
	if err != nil || obj != nil {
		return obj, err
	}
	return c.store.StoreObject(ctx, &model.Object{
		ID:     uuid.New(),
		TypeID: typeID,
		Value:  value,
	})
}

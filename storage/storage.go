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

// Package storage defines go interfaces for the persistence/search
// collaborator the graph core runs against. The core never talks to a
// concrete store directly; each consumer declares the subset of these
// interfaces it needs, which decouples the engine from any particular
// backend and makes unit testing easier.
//
// Point lookups return (nil, nil) when the entity does not exist; callers
// that require presence raise their own typed not-found errors with entity
// context. Enumerations stream onto a caller-supplied channel: the
// implementation must close the channel before returning, honor ctx
// cancellation between elements, and never require the full result set to be
// materialized.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mnemonic-no/grafeo-sub004/model"
)

// FactsCriteria bounds a SearchFacts enumeration. Zero-valued fields do not
// constrain the search. Limit caps the number of streamed results; a Limit
// of 0 means the implementation's default cap, never unlimited.
type FactsCriteria struct {
	FactTypeIDs     []uuid.UUID
	ObjectID        uuid.UUID
	OrganizationIDs []uuid.UUID
	Since           time.Time
	Until           time.Time
	Limit           int
}

// Constrains reports whether the criteria's content fields restrict which
// Facts match. ObjectID and Limit bound the enumeration, not the content,
// and are not considered.
func (c *FactsCriteria) Constrains() bool {
	return len(c.FactTypeIDs) > 0 || len(c.OrganizationIDs) > 0 ||
		!c.Since.IsZero() || !c.Until.IsZero()
}

// Matches reports whether the Fact satisfies the criteria's content fields.
// Zero-valued fields match everything.
func (c *FactsCriteria) Matches(f *model.Fact) bool {
	if len(c.FactTypeIDs) > 0 && !containsID(c.FactTypeIDs, f.TypeID) {
		return false
	}
	if len(c.OrganizationIDs) > 0 && !containsID(c.OrganizationIDs, f.OrganizationID) {
		return false
	}
	if !c.Since.IsZero() && f.Timestamp.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && f.Timestamp.After(c.Until) {
		return false
	}
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// ObjectLookup finds Objects by ID or by their unique (type, value) pair.
type ObjectLookup interface {
	Object(ctx context.Context, id uuid.UUID) (*model.Object, error)
	ObjectByValue(ctx context.Context, typeID uuid.UUID, value string) (*model.Object, error)
}

// ObjectWriter persists new Objects.
type ObjectWriter interface {
	StoreObject(ctx context.Context, obj *model.Object) (*model.Object, error)
}

// FactLookup finds a Fact by ID.
type FactLookup interface {
	Fact(ctx context.Context, id uuid.UUID) (*model.Fact, error)
}

// FactWriter persists new Facts and applies the narrow set of permitted
// updates to existing ones.
type FactWriter interface {
	StoreFact(ctx context.Context, fact *model.Fact) (*model.Fact, error)
	// RefreshFact updates only the lastSeen fields of the stored Fact
	// identified by fact.ID and returns the stored state.
	RefreshFact(ctx context.Context, fact *model.Fact) (*model.Fact, error)
	// FlagFact ORs the given flags into the stored Fact's flag set.
	FlagFact(ctx context.Context, id uuid.UUID, flags model.Flags) error
}

// FactAppender applies the monotonic appends a Fact permits after creation.
type FactAppender interface {
	AddFactACL(ctx context.Context, factID uuid.UUID, entries []model.FactAclEntry) error
	AddFactComment(ctx context.Context, factID uuid.UUID, comment model.FactComment) error
}

// ExistingFactLookup finds a stored Fact that is the same logical statement
// as the candidate (fingerprint-equivalent), if one exists.
type ExistingFactLookup interface {
	ExistingFact(ctx context.Context, candidate *model.Fact) (*model.Fact, error)
}

// ObjectFactLister enumerates the Facts bound to an Object. The result may
// be large; it is streamed and interruptible.
type ObjectFactLister interface {
	ObjectFacts(ctx context.Context, objectID uuid.UUID, resCh chan<- *model.Fact) error
}

// MetaFactLister enumerates the meta-Facts attached to a Fact.
type MetaFactLister interface {
	MetaFacts(ctx context.Context, factID uuid.UUID, resCh chan<- *model.Fact) error
}

// FactSearcher enumerates Facts matching the criteria, bounded by
// criteria.Limit.
type FactSearcher interface {
	SearchFacts(ctx context.Context, criteria FactsCriteria, resCh chan<- *model.Fact) error
}

// OriginLookup finds Origins by ID or name.
type OriginLookup interface {
	Origin(ctx context.Context, id uuid.UUID) (*model.Origin, error)
	OriginByName(ctx context.Context, name string) (*model.Origin, error)
}

// OriginWriter persists new Origins.
type OriginWriter interface {
	StoreOrigin(ctx context.Context, origin *model.Origin) (*model.Origin, error)
}

// TypeLookup resolves Fact and Object type definitions.
type TypeLookup interface {
	FactType(ctx context.Context, id uuid.UUID) (*model.FactType, error)
	FactTypeByName(ctx context.Context, name string) (*model.FactType, error)
	ObjectType(ctx context.Context, id uuid.UUID) (*model.ObjectType, error)
}

// Store is the collection of everything a full backend provides.
type Store interface {
	ObjectLookup
	ObjectWriter
	FactLookup
	FactWriter
	FactAppender
	ExistingFactLookup
	ObjectFactLister
	MetaFactLister
	FactSearcher
	OriginLookup
	OriginWriter
	TypeLookup
}

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

// Package retraction decides whether a Fact is logically void from one
// viewer's perspective. A Retraction is a well known meta-Fact type attached
// to the Fact it voids; a Retraction can itself be retracted, which
// reinstates the original Fact. Whether a Retraction counts depends on
// whether the viewer can read it, so retraction status is always
// viewer-relative.
package retraction

import (
	"context"

	"github.com/google/uuid"

	"github.com/mnemonic-no/grafeo-sub004/access"
	"github.com/mnemonic-no/grafeo-sub004/model"
	"github.com/mnemonic-no/grafeo-sub004/storage"
	"github.com/mnemonic-no/grafeo-sub004/util/parallel"
)

// Store is the subset of storage.Store the resolver needs.
type Store interface {
	storage.MetaFactLister
}

// A Resolver computes retraction status for one principal, memoizing per
// Fact ID. Construct one Resolver per request and discard it: the memo is
// viewer-dependent and the Resolver is not safe for concurrent use.
type Resolver struct {
	store            Store
	eval             *access.Evaluator
	retractionTypeID uuid.UUID
	cache            map[uuid.UUID]bool
	// inFlight guards against a reference cycle among retraction
	// meta-facts. Well-formed data cannot contain one, but a malformed
	// store must not hang us.
	inFlight map[uuid.UUID]struct{}
}

// New returns a Resolver for one request. eval carries the requesting
// principal's credentials; retractionTypeID is normally
// model.RetractionTypeID.
func New(store Store, eval *access.Evaluator, retractionTypeID uuid.UUID) *Resolver {
	return &Resolver{
		store:            store,
		eval:             eval,
		retractionTypeID: retractionTypeID,
		cache:            make(map[uuid.UUID]bool),
		inFlight:         make(map[uuid.UUID]struct{}),
	}
}

// IsRetracted reports whether the Fact is retracted from the resolver's
// principal's perspective. A Fact is retracted when it has at least one
// visible Retraction that is not itself (recursively) retracted.
// Retractions the principal cannot read do not count. The returned error is
// only ever a storage or ctx failure; missing or unreadable meta-facts are
// "does not retract", never an error.
func (r *Resolver) IsRetracted(ctx context.Context, fact *model.Fact) (bool, error) {
	if res, ok := r.cache[fact.ID]; ok {
		return res, nil
	}
	// Facts that never had a retraction attached carry no hint; settle
	// them without a storage round-trip. This is the overwhelming common
	// case during traversal.
	if !fact.Flags.Has(model.RetractedHint) {
		r.cache[fact.ID] = false
		return false, nil
	}
	if _, active := r.inFlight[fact.ID]; active {
		return false, nil
	}
	r.inFlight[fact.ID] = struct{}{}
	defer delete(r.inFlight, fact.ID)

	retractions, err := r.visibleRetractions(ctx, fact.ID)
	if err != nil {
		return false, err
	}
	if len(retractions) == 0 {
		r.cache[fact.ID] = false
		return false, nil
	}
	// The fact survives only if every visible retraction is itself
	// retracted.
	retracted := false
	for _, ret := range retractions {
		sub, err := r.IsRetracted(ctx, ret)
		if err != nil {
			return false, err
		}
		if !sub {
			retracted = true
			break
		}
	}
	r.cache[fact.ID] = retracted
	return retracted, nil
}

func (r *Resolver) visibleRetractions(ctx context.Context, factID uuid.UUID) ([]*model.Fact, error) {
	resCh := make(chan *model.Fact, 16)
	wait := parallel.GoCaptureError(func() error {
		return r.store.MetaFacts(ctx, factID, resCh)
	})
	var retractions []*model.Fact
	for mf := range resCh {
		if mf.TypeID == r.retractionTypeID && r.eval.CanReadFact(mf) {
			retractions = append(retractions, mf)
		}
	}
	if err := wait(); err != nil {
		return nil, err
	}
	return retractions, nil
}

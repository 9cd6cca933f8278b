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

package retraction

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemonic-no/grafeo-sub004/access"
	"github.com/mnemonic-no/grafeo-sub004/model"
	"github.com/mnemonic-no/grafeo-sub004/storage/memstore"
)

type fixture struct {
	store *memstore.Store
	org   uuid.UUID
	eval  *access.Evaluator
}

func newFixture() *fixture {
	org := uuid.New()
	subject := uuid.New()
	idx := access.NewIndex(access.Snapshot{
		Organizations: []model.Organization{{ID: org, Name: "org"}},
		Subjects:      []model.Subject{{ID: subject, Name: "viewer"}},
	})
	creds := access.Resolve(idx, access.Principal{SubjectID: subject, OrganizationID: org})
	return &fixture{
		store: memstore.New(),
		org:   org,
		eval:  access.NewEvaluator(creds),
	}
}

// storeFact stores a RoleBased fact owned by the fixture org.
func (fx *fixture) storeFact(t *testing.T, f *model.Fact) *model.Fact {
	t.Helper()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.AccessMode == model.RoleBased && f.OrganizationID == uuid.Nil {
		f.OrganizationID = fx.org
	}
	stored, err := fx.store.StoreFact(context.Background(), f)
	require.NoError(t, err)
	return stored
}

// retract attaches a Retraction meta-fact to target and sets the hint.
func (fx *fixture) retract(t *testing.T, target *model.Fact, mode model.AccessMode, acl ...uuid.UUID) *model.Fact {
	t.Helper()
	ret := &model.Fact{
		ID:              uuid.New(),
		TypeID:          model.RetractionTypeID,
		AccessMode:      mode,
		OrganizationID:  fx.org,
		InReferenceToID: target.ID,
	}
	for _, sub := range acl {
		ret.ACL = append(ret.ACL, model.FactAclEntry{ID: uuid.New(), FactID: ret.ID, SubjectID: sub})
	}
	stored, err := fx.store.StoreFact(context.Background(), ret)
	require.NoError(t, err)
	require.NoError(t, fx.store.FlagFact(context.Background(), target.ID, model.RetractedHint))
	target.Flags |= model.RetractedHint
	return stored
}

func (fx *fixture) resolver() *Resolver {
	return New(fx.store, fx.eval, model.RetractionTypeID)
}

func Test_NoHintNeedsNoStorage(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	f := &model.Fact{ID: uuid.New(), AccessMode: model.Public}
	// A nil store proves the hintless path never reaches storage.
	r := New(nil, fx.eval, model.RetractionTypeID)
	retracted, err := r.IsRetracted(ctx, f)
	require.NoError(t, err)
	assert.False(t, retracted)
}

func Test_SimpleRetraction(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	f := fx.storeFact(t, &model.Fact{AccessMode: model.RoleBased, TypeID: uuid.New(), SourceObjectID: uuid.New()})
	fx.retract(t, f, model.RoleBased)

	retracted, err := fx.resolver().IsRetracted(ctx, f)
	require.NoError(t, err)
	assert.True(t, retracted)
}

func Test_UnreadableRetractionDoesNotCount(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	f := fx.storeFact(t, &model.Fact{AccessMode: model.Public, TypeID: uuid.New(), SourceObjectID: uuid.New()})
	// Explicit-mode retraction whose ACL names someone else: from this
	// viewer's perspective the fact is not retracted.
	fx.retract(t, f, model.Explicit, uuid.New())

	retracted, err := fx.resolver().IsRetracted(ctx, f)
	require.NoError(t, err)
	assert.False(t, retracted)
}

func Test_RetractionReinstatement(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	f := fx.storeFact(t, &model.Fact{AccessMode: model.RoleBased, TypeID: uuid.New(), SourceObjectID: uuid.New()})
	r1 := fx.retract(t, f, model.RoleBased)

	retracted, err := fx.resolver().IsRetracted(ctx, f)
	require.NoError(t, err)
	require.True(t, retracted)

	// Retracting the retraction reinstates the original fact.
	fx.retract(t, r1, model.RoleBased)
	retracted, err = fx.resolver().IsRetracted(ctx, f)
	require.NoError(t, err)
	assert.False(t, retracted, "r1 is itself retracted, so f survives")

	// If the reinstating retraction is invisible to the viewer, f is
	// retracted again.
	fx2 := newFixture()
	f2 := fx2.storeFact(t, &model.Fact{AccessMode: model.Public, TypeID: uuid.New(), SourceObjectID: uuid.New()})
	r21 := fx2.retract(t, f2, model.Public)
	fx2.retract(t, r21, model.Explicit, uuid.New())
	retracted, err = fx2.resolver().IsRetracted(ctx, f2)
	require.NoError(t, err)
	assert.True(t, retracted)
}

func Test_MixedRetractions(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	f := fx.storeFact(t, &model.Fact{AccessMode: model.RoleBased, TypeID: uuid.New(), SourceObjectID: uuid.New()})
	// Two retractions; only one of them is itself retracted. The fact is
	// void unless ALL visible retractions are retracted.
	r1 := fx.retract(t, f, model.RoleBased)
	fx.retract(t, f, model.RoleBased)
	fx.retract(t, r1, model.RoleBased)

	retracted, err := fx.resolver().IsRetracted(ctx, f)
	require.NoError(t, err)
	assert.True(t, retracted)
}

// countingStore wraps the memstore to count meta-fact fetches.
type countingStore struct {
	*memstore.Store
	calls int
}

func (c *countingStore) MetaFacts(ctx context.Context, factID uuid.UUID, resCh chan<- *model.Fact) error {
	c.calls++
	return c.Store.MetaFacts(ctx, factID, resCh)
}

func Test_Memoization(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	f := fx.storeFact(t, &model.Fact{AccessMode: model.RoleBased, TypeID: uuid.New(), SourceObjectID: uuid.New()})
	fx.retract(t, f, model.RoleBased)

	counting := &countingStore{Store: fx.store}
	r := New(counting, fx.eval, model.RetractionTypeID)
	for i := 0; i < 3; i++ {
		retracted, err := r.IsRetracted(ctx, f)
		require.NoError(t, err)
		assert.True(t, retracted)
	}
	// One fetch for f's meta-facts; the unretracted retraction settles on
	// its missing hint, and repeats hit the memo.
	assert.Equal(t, 1, counting.calls)
}

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

package graph

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemonic-no/grafeo-sub004/access"
	"github.com/mnemonic-no/grafeo-sub004/config"
	"github.com/mnemonic-no/grafeo-sub004/model"
	"github.com/mnemonic-no/grafeo-sub004/retraction"
	"github.com/mnemonic-no/grafeo-sub004/storage"
	"github.com/mnemonic-no/grafeo-sub004/storage/memstore"
	"github.com/mnemonic-no/grafeo-sub004/util/parallel"
)

var (
	ipTypeID      = uuid.New()
	domainTypeID  = uuid.New()
	resolveTypeID = uuid.New()
	mentionTypeID = uuid.New()
)

type fixture struct {
	store   *memstore.Store
	org     uuid.UUID
	subject uuid.UUID
	creds   *access.Credentials
}

func newFixture() *fixture {
	fx := &fixture{
		store:   memstore.New(),
		org:     uuid.New(),
		subject: uuid.New(),
	}
	fx.store.AddObjectType(model.ObjectType{ID: ipTypeID, Name: "ipv4"})
	fx.store.AddObjectType(model.ObjectType{ID: domainTypeID, Name: "domain"})
	fx.store.AddFactType(model.FactType{ID: resolveTypeID, Name: "resolve"})
	fx.store.AddFactType(model.FactType{ID: mentionTypeID, Name: "mention"})
	idx := access.NewIndex(access.Snapshot{
		Organizations: []model.Organization{{ID: fx.org, Name: "org"}},
		Subjects:      []model.Subject{{ID: fx.subject, Name: "viewer"}},
		Functions:     []model.Function{{Name: access.ViewFacts}},
	})
	fx.creds = access.Resolve(idx, access.Principal{
		SubjectID:      fx.subject,
		OrganizationID: fx.org,
		Functions:      []string{access.ViewFacts},
	})
	return fx
}

func (fx *fixture) graph(params TraverseParams) *Graph {
	eval := access.NewEvaluator(fx.creds)
	return New(fx.store, eval, retraction.New(fx.store, eval, model.RetractionTypeID), params)
}

func (fx *fixture) object(t *testing.T, typeID uuid.UUID, value string) *model.Object {
	t.Helper()
	obj, err := fx.store.StoreObject(context.Background(), &model.Object{
		ID: uuid.New(), TypeID: typeID, Value: value,
	})
	require.NoError(t, err)
	return obj
}

func (fx *fixture) fact(t *testing.T, f *model.Fact) *model.Fact {
	t.Helper()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.OrganizationID == uuid.Nil {
		f.OrganizationID = fx.org
	}
	stored, err := fx.store.StoreFact(context.Background(), f)
	require.NoError(t, err)
	return stored
}

// link stores a readable RoleBased fact binding src to dst.
func (fx *fixture) link(t *testing.T, typeID uuid.UUID, src, dst *model.Object) *model.Fact {
	t.Helper()
	return fx.fact(t, &model.Fact{
		TypeID:              typeID,
		AccessMode:          model.RoleBased,
		SourceObjectID:      src.ID,
		DestinationObjectID: dst.ID,
	})
}

func collectEdges(t *testing.T, v *ObjectVertex, dir Direction, labels ...string) []*FactEdge {
	t.Helper()
	resCh := make(chan *FactEdge, 64)
	wait := parallel.GoCaptureError(func() error {
		return v.Edges(context.Background(), dir, labels, resCh)
	})
	var res []*FactEdge
	for e := range resCh {
		res = append(res, e)
	}
	require.NoError(t, wait())
	return res
}

func collectVertices(t *testing.T, v *ObjectVertex, dir Direction, labels ...string) []*ObjectVertex {
	t.Helper()
	resCh := make(chan *ObjectVertex, 64)
	wait := parallel.GoCaptureError(func() error {
		return v.Vertices(context.Background(), dir, labels, resCh)
	})
	var res []*ObjectVertex
	for n := range resCh {
		res = append(res, n)
	}
	require.NoError(t, wait())
	return res
}

func Test_ResolveTraversal(t *testing.T) {
	// Object ip=1.1.1.1 --resolve--> Object domain=example.org.
	ctx := context.Background()
	fx := newFixture()
	ip := fx.object(t, ipTypeID, "1.1.1.1")
	domain := fx.object(t, domainTypeID, "example.org")
	fx.link(t, resolveTypeID, ip, domain)

	g := fx.graph(TraverseParams{})
	vs, err := g.Vertices(ctx, ip.ID)
	require.NoError(t, err)
	require.Len(t, vs, 1)

	out := collectVertices(t, vs[0], Out, "resolve")
	require.Len(t, out, 1)
	assert.Equal(t, "example.org", out[0].Object().Value)

	vs, err = g.Vertices(ctx, domain.ID.String()) // UUID strings work too
	require.NoError(t, err)
	in := collectVertices(t, vs[0], In, "resolve")
	require.Len(t, in, 1)
	assert.Equal(t, "1.1.1.1", in[0].Object().Value)

	// Vertex identity: the same Object materializes as the same vertex.
	assert.Same(t, vs[0], out[0])
}

func Test_EmptyIDListsRejected(t *testing.T) {
	ctx := context.Background()
	g := newFixture().graph(TraverseParams{})

	_, err := g.Vertices(ctx)
	require.Error(t, err)
	assert.True(t, IsUnsupported(err), "no full vertex scan")

	_, err = g.Edges(ctx)
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
}

func Test_UnsupportedIDKinds(t *testing.T) {
	ctx := context.Background()
	g := newFixture().graph(TraverseParams{})

	_, err := g.Vertices(ctx, 42)
	assert.IsType(t, &UnsupportedIDError{}, err)

	_, err = g.Vertices(ctx, "not-a-uuid")
	assert.IsType(t, &UnsupportedIDError{}, err)

	_, err = g.Edges(ctx, 3.14)
	assert.IsType(t, &UnsupportedIDError{}, err)
}

func Test_MissingAndInaccessibleLookAlike(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	g := fx.graph(TraverseParams{})

	missingID := uuid.New()
	_, missingErr := g.Vertices(ctx, missingID)
	require.Error(t, missingErr)
	assert.True(t, IsNotFound(missingErr))

	// An object whose only fact is Explicit to someone else: same error
	// shape, nothing leaks.
	hidden := fx.object(t, domainTypeID, "secret.example")
	fx.fact(t, &model.Fact{
		TypeID:         mentionTypeID,
		AccessMode:     model.Explicit,
		SourceObjectID: hidden.ID,
		ACL:            []model.FactAclEntry{{SubjectID: uuid.New()}},
	})
	_, hiddenErr := g.Vertices(ctx, hidden.ID)
	require.Error(t, hiddenErr)
	assert.True(t, IsNotFound(hiddenErr))
	assert.IsType(t, missingErr, hiddenErr)
}

func Test_ReadOnlySurface(t *testing.T) {
	g := newFixture().graph(TraverseParams{})
	_, err := g.AddVertex(&model.Object{})
	assert.True(t, IsUnsupported(err))
	_, err = g.AddEdge(&model.Fact{})
	assert.True(t, IsUnsupported(err))
	assert.True(t, IsUnsupported(g.Tx()))
	assert.True(t, IsUnsupported(g.Compute()))
}

func Test_ViewCapabilityRequired(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	obj := fx.object(t, ipTypeID, "1.1.1.1")

	// Same subject, but no granted functions at all.
	idx := access.NewIndex(access.Snapshot{})
	creds := access.Resolve(idx, access.Principal{SubjectID: fx.subject, OrganizationID: fx.org})
	eval := access.NewEvaluator(creds)
	g := New(fx.store, eval, retraction.New(fx.store, eval, model.RetractionTypeID), TraverseParams{})

	_, err := g.Vertices(ctx, obj.ID)
	require.Error(t, err)
	assert.True(t, access.IsAccessDenied(err))
}

func Test_BidirectionalFactYieldsTwoEdges(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	a := fx.object(t, domainTypeID, "a.example")
	b := fx.object(t, domainTypeID, "b.example")
	fact := fx.fact(t, &model.Fact{
		TypeID:              mentionTypeID,
		AccessMode:          model.RoleBased,
		SourceObjectID:      a.ID,
		DestinationObjectID: b.ID,
		Bidirectional:       true,
	})

	g := fx.graph(TraverseParams{})
	vs, err := g.Vertices(ctx, a.ID)
	require.NoError(t, err)

	edges := collectEdges(t, vs[0], Both)
	require.Len(t, edges, 2)
	assert.NotEqual(t, edges[0].ID(), edges[1].ID(), "two distinct edge identities")
	assert.Equal(t, fact.ID, edges[0].Fact().ID)
	assert.Equal(t, fact.ID, edges[1].Fact().ID, "sharing one underlying fact")
	assert.NotEqual(t, fact.ID, edges[0].ID(), "edge ids are synthetic")

	// One orientation each way.
	out := collectEdges(t, vs[0], Out)
	in := collectEdges(t, vs[0], In)
	require.Len(t, out, 1)
	require.Len(t, in, 1)
	srcs, err := out[0].Vertices(ctx, Out)
	require.NoError(t, err)
	assert.Equal(t, a.ID, srcs[0].ID())
	dsts, err := in[0].Vertices(ctx, In)
	require.NoError(t, err)
	assert.Equal(t, a.ID, dsts[0].ID())
}

func Test_EdgeLookupBySyntheticID(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	ip := fx.object(t, ipTypeID, "1.1.1.1")
	domain := fx.object(t, domainTypeID, "example.org")
	fx.link(t, resolveTypeID, ip, domain)

	g := fx.graph(TraverseParams{})
	vs, err := g.Vertices(ctx, ip.ID)
	require.NoError(t, err)
	edges := collectEdges(t, vs[0], Out)
	require.Len(t, edges, 1)

	got, err := g.Edges(ctx, edges[0].ID())
	require.NoError(t, err)
	assert.Same(t, edges[0], got[0])

	_, err = g.Edges(ctx, uuid.New())
	assert.True(t, IsNotFound(err))
}

func Test_TraversalFiltersInaccessible(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	ip := fx.object(t, ipTypeID, "1.1.1.1")
	d1 := fx.object(t, domainTypeID, "open.example")
	d2 := fx.object(t, domainTypeID, "closed.example")
	fx.link(t, resolveTypeID, ip, d1)
	fx.fact(t, &model.Fact{ // readable only by someone else
		TypeID:              resolveTypeID,
		AccessMode:          model.Explicit,
		SourceObjectID:      ip.ID,
		DestinationObjectID: d2.ID,
		ACL:                 []model.FactAclEntry{{SubjectID: uuid.New()}},
	})

	g := fx.graph(TraverseParams{})
	vs, err := g.Vertices(ctx, ip.ID)
	require.NoError(t, err)
	out := collectVertices(t, vs[0], Out, "resolve")
	require.Len(t, out, 1, "the inaccessible edge is silently dropped")
	assert.Equal(t, "open.example", out[0].Object().Value)
}

func Test_TraversalFiltersRetracted(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	ip := fx.object(t, ipTypeID, "1.1.1.1")
	domain := fx.object(t, domainTypeID, "example.org")
	fact := fx.link(t, resolveTypeID, ip, domain)

	// Retract it.
	fx.fact(t, &model.Fact{
		TypeID:          model.RetractionTypeID,
		AccessMode:      model.RoleBased,
		InReferenceToID: fact.ID,
	})
	require.NoError(t, fx.store.FlagFact(ctx, fact.ID, model.RetractedHint))

	g := fx.graph(TraverseParams{})
	vs, err := g.Vertices(ctx, ip.ID)
	require.NoError(t, err)
	assert.Empty(t, collectEdges(t, vs[0], Out))

	// includeRetracted brings it back.
	g = fx.graph(TraverseParams{IncludeRetracted: true})
	vs, err = g.Vertices(ctx, ip.ID)
	require.NoError(t, err)
	assert.Len(t, collectEdges(t, vs[0], Out), 1)
}

func Test_TraversalLimit(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	ip := fx.object(t, ipTypeID, "1.1.1.1")
	for i := 0; i < 40; i++ {
		fx.link(t, resolveTypeID, ip, fx.object(t, domainTypeID, fmt.Sprintf("d%d.example", i)))
	}

	g := fx.graph(TraverseParams{})
	vs, err := g.Vertices(ctx, ip.ID)
	require.NoError(t, err)
	assert.Len(t, collectEdges(t, vs[0], Out), 25, "default limit")

	g = fx.graph(TraverseParams{Limit: 7})
	vs, err = g.Vertices(ctx, ip.ID)
	require.NoError(t, err)
	assert.Len(t, collectEdges(t, vs[0], Out), 7)
}

func Test_LabelFilter(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	ip := fx.object(t, ipTypeID, "1.1.1.1")
	domain := fx.object(t, domainTypeID, "example.org")
	fx.link(t, resolveTypeID, ip, domain)
	fx.link(t, mentionTypeID, ip, domain)

	g := fx.graph(TraverseParams{})
	vs, err := g.Vertices(ctx, ip.ID)
	require.NoError(t, err)

	assert.Len(t, collectEdges(t, vs[0], Out), 2)
	assert.Len(t, collectEdges(t, vs[0], Out, "resolve"), 1)
	assert.Empty(t, collectEdges(t, vs[0], Out, "no-such-type"), "unknown label matches nothing")
}

func Test_VertexProperties(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	domain := fx.object(t, domainTypeID, "example.org")
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	fx.fact(t, &model.Fact{
		TypeID: model.NameTypeID, AccessMode: model.RoleBased,
		SourceObjectID: domain.ID, Value: "old name", Timestamp: older,
	})
	fx.fact(t, &model.Fact{
		TypeID: model.NameTypeID, AccessMode: model.RoleBased,
		SourceObjectID: domain.ID, Value: "new name", Timestamp: newer,
	})
	fx.fact(t, &model.Fact{
		TypeID: model.CategoryTypeID, AccessMode: model.RoleBased,
		SourceObjectID: domain.ID, Value: "malware-c2", Timestamp: older,
	})

	g := fx.graph(TraverseParams{})
	vs, err := g.Vertices(ctx, domain.ID)
	require.NoError(t, err)

	props, err := vs[0].Properties(ctx)
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "category", props[0].Key)
	assert.Equal(t, "malware-c2", props[0].Value)
	assert.Equal(t, "name", props[1].Key)
	assert.Equal(t, "new name", props[1].Value, "most recent timestamp wins")

	named, err := vs[0].Properties(ctx, "name")
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, "name", named[0].Key)
}

func Test_EdgeProperties(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	ip := fx.object(t, ipTypeID, "1.1.1.1")
	domain := fx.object(t, domainTypeID, "example.org")
	fact := fx.link(t, resolveTypeID, ip, domain)

	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fx.fact(t, &model.Fact{
		TypeID: model.CommentTypeID, AccessMode: model.RoleBased,
		InReferenceToID: fact.ID, Value: "seen in campaign", Timestamp: when,
	})
	// An inaccessible annotation must not surface.
	fx.fact(t, &model.Fact{
		TypeID: model.CommentTypeID, AccessMode: model.Explicit,
		InReferenceToID: fact.ID, Value: "hidden", Timestamp: when.Add(time.Hour),
		ACL: []model.FactAclEntry{{SubjectID: uuid.New()}},
	})

	g := fx.graph(TraverseParams{})
	vs, err := g.Vertices(ctx, ip.ID)
	require.NoError(t, err)
	edges := collectEdges(t, vs[0], Out)
	require.Len(t, edges, 1)
	assert.Equal(t, "resolve", edges[0].Label())

	props, err := edges[0].Properties(ctx)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "Comment", props[0].Key)
	assert.Equal(t, "seen in campaign", props[0].Value)
}

func Test_TraversalContentFilter(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	ip := fx.object(t, ipTypeID, "1.1.1.1")
	early := fx.object(t, domainTypeID, "early.example")
	late := fx.object(t, domainTypeID, "late.example")
	fx.fact(t, &model.Fact{
		TypeID:              resolveTypeID,
		AccessMode:          model.RoleBased,
		SourceObjectID:      ip.ID,
		DestinationObjectID: early.ID,
		Timestamp:           time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	fx.fact(t, &model.Fact{
		TypeID:              mentionTypeID,
		AccessMode:          model.RoleBased,
		SourceObjectID:      ip.ID,
		DestinationObjectID: late.ID,
		Timestamp:           time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	})
	vertex := func(params TraverseParams) *ObjectVertex {
		vs, err := fx.graph(params).Vertices(ctx, ip.ID)
		require.NoError(t, err)
		require.Len(t, vs, 1)
		return vs[0]
	}

	t.Run("fact types", func(t *testing.T) {
		edges := collectEdges(t, vertex(TraverseParams{
			Filter: storage.FactsCriteria{FactTypeIDs: []uuid.UUID{resolveTypeID}},
		}), Both)
		require.Len(t, edges, 1)
		assert.Equal(t, "resolve", edges[0].Label())
	})

	t.Run("organizations", func(t *testing.T) {
		edges := collectEdges(t, vertex(TraverseParams{
			Filter: storage.FactsCriteria{OrganizationIDs: []uuid.UUID{fx.org}},
		}), Both)
		assert.Len(t, edges, 2)
		edges = collectEdges(t, vertex(TraverseParams{
			Filter: storage.FactsCriteria{OrganizationIDs: []uuid.UUID{uuid.New()}},
		}), Both)
		assert.Empty(t, edges)
	})

	t.Run("time window", func(t *testing.T) {
		cut := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		edges := collectEdges(t, vertex(TraverseParams{
			Filter: storage.FactsCriteria{Since: cut},
		}), Both)
		require.Len(t, edges, 1)
		assert.Equal(t, "mention", edges[0].Label())
		edges = collectEdges(t, vertex(TraverseParams{
			Filter: storage.FactsCriteria{Until: cut},
		}), Both)
		require.Len(t, edges, 1)
		assert.Equal(t, "resolve", edges[0].Label())
	})

	t.Run("vertices inherit the filter", func(t *testing.T) {
		vs := collectVertices(t, vertex(TraverseParams{
			Filter: storage.FactsCriteria{FactTypeIDs: []uuid.UUID{mentionTypeID}},
		}), Both)
		require.Len(t, vs, 1)
		assert.Equal(t, "late.example", vs[0].Object().Value)
	})
}

func Test_ParamsFromConfig(t *testing.T) {
	assert.Equal(t, TraverseParams{}, ParamsFromConfig(nil))
	assert.Equal(t, TraverseParams{}, ParamsFromConfig(&config.Grafeo{}))
	params := ParamsFromConfig(&config.Grafeo{
		Graph: &config.Graph{DefaultTraversalLimit: 3},
	})
	assert.Equal(t, 3, params.Limit)
}

func Test_EdgeEndpointsInvalidDirection(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	ip := fx.object(t, ipTypeID, "1.1.1.1")
	domain := fx.object(t, domainTypeID, "example.org")
	fx.link(t, resolveTypeID, ip, domain)

	vs, err := fx.graph(TraverseParams{}).Vertices(ctx, ip.ID)
	require.NoError(t, err)
	edges := collectEdges(t, vs[0], Out)
	require.Len(t, edges, 1)

	_, err = edges[0].Vertices(ctx, Direction(99))
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
}

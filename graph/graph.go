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

// Package graph exposes the Object/Fact model as a navigable, read-only,
// access-filtered graph. Objects materialize as vertices and two-bound Facts
// as edges; traversal silently drops Facts the requesting principal cannot
// read and Facts that are retracted from the principal's perspective.
// Enumerations stream over channels and honor ctx between elements, so a
// query interpreter can stop a traversal at any point.
//
// A Graph is scoped to one request: it carries the request's credentials,
// its retraction resolver and its element caches, and is not safe for
// concurrent use.
package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/mnemonic-no/grafeo-sub004/access"
	"github.com/mnemonic-no/grafeo-sub004/config"
	"github.com/mnemonic-no/grafeo-sub004/model"
	"github.com/mnemonic-no/grafeo-sub004/retraction"
	"github.com/mnemonic-no/grafeo-sub004/storage"
)

// defaultLimit bounds enumerations when TraverseParams doesn't set one.
const defaultLimit = 25

// Store is the subset of storage.Store the graph needs. This makes it easier
// to write unit tests.
type Store interface {
	storage.ObjectLookup
	storage.FactLookup
	storage.ObjectFactLister
	storage.MetaFactLister
	storage.FactSearcher
	storage.TypeLookup
}

// TraverseParams configures one traversal request. The zero value asks for
// the defaults: retracted Facts excluded, no content filter, at most 25
// elements per enumeration.
type TraverseParams struct {
	// IncludeRetracted keeps retracted Facts in traversal results.
	IncludeRetracted bool
	// Filter bounds every edge enumeration to Facts matching the
	// criteria's content fields (fact types, organizations, time window).
	// The criteria's ObjectID and Limit are managed by the traversal and
	// ignored here.
	Filter storage.FactsCriteria
	// Limit caps each edge/vertex enumeration. 0 means the default of 25;
	// there is no "unlimited".
	Limit int
}

func (p TraverseParams) limit() int {
	if p.Limit <= 0 {
		return defaultLimit
	}
	return p.Limit
}

// ParamsFromConfig builds TraverseParams with the configured default
// traversal limit. Values the configuration leaves unset keep the zero
// value, which limit() turns into the built-in default.
func ParamsFromConfig(cfg *config.Grafeo) TraverseParams {
	params := TraverseParams{}
	if cfg == nil || cfg.Graph == nil {
		return params
	}
	params.Limit = cfg.Graph.DefaultTraversalLimit
	return params
}

// A Direction orients an edge relative to a vertex, or selects an edge's
// endpoints.
type Direction int

const (
	// In selects edges arriving at the vertex, or an edge's destination.
	In Direction = iota
	// Out selects edges leaving the vertex, or an edge's source.
	Out
	// Both selects both.
	Both
)

func (d Direction) String() string {
	switch d {
	case In:
		return "IN"
	case Out:
		return "OUT"
	case Both:
		return "BOTH"
	}
	return "Direction(?)"
}

// Graph is the traversable view of the Object/Fact store for one request.
type Graph struct {
	store    Store
	eval     *access.Evaluator
	retract  *retraction.Resolver
	params   TraverseParams
	vertices map[uuid.UUID]*ObjectVertex
	edges    map[uuid.UUID]*FactEdge
	// edgesByIdent gives one Fact orientation one stable edge per Graph.
	edgesByIdent map[edgeIdent]*FactEdge
	typeNames    map[uuid.UUID]string
}

// edgeIdent identifies one orientation of one Fact: a bidirectional Fact
// between A and B materializes as two edges, one per source.
type edgeIdent struct {
	factID   uuid.UUID
	sourceID uuid.UUID
}

// New returns a Graph for one request. eval and resolver must be scoped to
// the same principal.
func New(store Store, eval *access.Evaluator, resolver *retraction.Resolver, params TraverseParams) *Graph {
	return &Graph{
		store:        store,
		eval:         eval,
		retract:      resolver,
		params:       params,
		vertices:     make(map[uuid.UUID]*ObjectVertex),
		edges:        make(map[uuid.UUID]*FactEdge),
		edgesByIdent: make(map[edgeIdent]*FactEdge),
		typeNames:    make(map[uuid.UUID]string),
	}
}

// Vertices resolves the given vertex references. Each reference may be a
// uuid.UUID, a UUID string, or an already-materialized *ObjectVertex; any
// other kind is an UnsupportedIDError. Calling Vertices with no references
// is an UnsupportedError: the graph has no full vertex scan. A missing or
// inaccessible Object is a NotFoundError either way.
func (g *Graph) Vertices(ctx context.Context, refs ...interface{}) ([]*ObjectVertex, error) {
	if len(refs) == 0 {
		return nil, &UnsupportedError{Operation: "vertex enumeration without ids"}
	}
	if err := g.checkView(); err != nil {
		return nil, err
	}
	res := make([]*ObjectVertex, 0, len(refs))
	for _, ref := range refs {
		v, err := g.resolveVertexRef(ctx, ref)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
}

// Edges resolves the given edge references: uuid.UUID, UUID string, or
// *FactEdge. Edge IDs are synthetic and scoped to this Graph instance, so
// only edges this Graph has materialized can be resolved. No references is
// an UnsupportedError, same as Vertices.
func (g *Graph) Edges(ctx context.Context, refs ...interface{}) ([]*FactEdge, error) {
	if len(refs) == 0 {
		return nil, &UnsupportedError{Operation: "edge enumeration without ids"}
	}
	if err := g.checkView(); err != nil {
		return nil, err
	}
	res := make([]*FactEdge, 0, len(refs))
	for _, ref := range refs {
		var id uuid.UUID
		switch e := ref.(type) {
		case *FactEdge:
			res = append(res, e)
			continue
		case uuid.UUID:
			id = e
		case string:
			parsed, err := uuid.Parse(e)
			if err != nil {
				return nil, &UnsupportedIDError{ID: ref}
			}
			id = parsed
		default:
			return nil, &UnsupportedIDError{ID: ref}
		}
		edge, ok := g.edges[id]
		if !ok {
			return nil, &NotFoundError{Kind: "edge", Ref: id.String()}
		}
		res = append(res, edge)
	}
	return res, nil
}

// AddVertex fails: the graph is read-only. New Objects enter through the
// ingest path.
func (g *Graph) AddVertex(obj *model.Object) (*ObjectVertex, error) {
	return nil, &UnsupportedError{Operation: "vertex addition"}
}

// AddEdge fails: the graph is read-only. New Facts enter through the ingest
// path.
func (g *Graph) AddEdge(fact *model.Fact) (*FactEdge, error) {
	return nil, &UnsupportedError{Operation: "edge addition"}
}

// Tx fails: the read-only graph has no transactions.
func (g *Graph) Tx() error {
	return &UnsupportedError{Operation: "transactions"}
}

// Compute fails: the graph offers traversal only, no graph compute.
func (g *Graph) Compute() error {
	return &UnsupportedError{Operation: "graph compute"}
}

func (g *Graph) checkView() error {
	if !g.eval.Credentials().HasCapability(access.ViewFacts) {
		return &access.AccessDeniedError{Kind: "capability", Ref: access.ViewFacts}
	}
	return nil
}

func (g *Graph) resolveVertexRef(ctx context.Context, ref interface{}) (*ObjectVertex, error) {
	switch v := ref.(type) {
	case *ObjectVertex:
		return v, nil
	case uuid.UUID:
		return g.vertex(ctx, v)
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, &UnsupportedIDError{ID: ref}
		}
		return g.vertex(ctx, id)
	default:
		return nil, &UnsupportedIDError{ID: ref}
	}
}

// vertex materializes the vertex for an Object the principal can read.
// Missing and unreadable are indistinguishable by design.
func (g *Graph) vertex(ctx context.Context, id uuid.UUID) (*ObjectVertex, error) {
	if v, ok := g.vertices[id]; ok {
		return v, nil
	}
	obj, err := g.store.Object(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, &NotFoundError{Kind: "vertex", Ref: id.String()}
	}
	readable, err := g.eval.CanReadObject(ctx, obj, g.store)
	if err != nil {
		return nil, err
	}
	if !readable {
		return nil, &NotFoundError{Kind: "vertex", Ref: id.String()}
	}
	v := &ObjectVertex{graph: g, object: obj}
	g.vertices[id] = v
	return v, nil
}

// endpointVertex materializes an endpoint of an already-readable Fact. The
// Fact being readable grants visibility of its endpoints, so no per-Object
// access check is repeated here.
func (g *Graph) endpointVertex(ctx context.Context, id uuid.UUID) (*ObjectVertex, error) {
	if v, ok := g.vertices[id]; ok {
		return v, nil
	}
	obj, err := g.store.Object(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, &NotFoundError{Kind: "vertex", Ref: id.String()}
	}
	v := &ObjectVertex{graph: g, object: obj}
	g.vertices[id] = v
	return v, nil
}

// edge returns this Graph's edge for one orientation of a Fact,
// materializing it on first use with a fresh synthetic ID.
func (g *Graph) edge(ctx context.Context, fact *model.Fact, sourceID, destID uuid.UUID) (*FactEdge, error) {
	ident := edgeIdent{factID: fact.ID, sourceID: sourceID}
	if e, ok := g.edgesByIdent[ident]; ok {
		return e, nil
	}
	label, err := g.typeName(ctx, fact.TypeID)
	if err != nil {
		return nil, err
	}
	e := &FactEdge{
		graph:    g,
		id:       uuid.New(),
		fact:     fact,
		label:    label,
		sourceID: sourceID,
		destID:   destID,
	}
	g.edgesByIdent[ident] = e
	g.edges[e.id] = e
	return e, nil
}

// typeName resolves a FactType name, caching per Graph. Unknown types fall
// back to the raw ID so traversal keeps working on a sparsely-populated
// type registry.
func (g *Graph) typeName(ctx context.Context, typeID uuid.UUID) (string, error) {
	if name, ok := g.typeNames[typeID]; ok {
		return name, nil
	}
	ft, err := g.store.FactType(ctx, typeID)
	if err != nil {
		return "", err
	}
	name := typeID.String()
	if ft != nil {
		name = ft.Name
	}
	g.typeNames[typeID] = name
	return name, nil
}

// labelFilter resolves label names to the set of FactType IDs they denote.
// nil means "no filter". A label that names no known FactType matches
// nothing.
func (g *Graph) labelFilter(ctx context.Context, labels []string) (map[uuid.UUID]struct{}, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	wanted := make(map[uuid.UUID]struct{}, len(labels))
	for _, label := range labels {
		ft, err := g.store.FactTypeByName(ctx, label)
		if err != nil {
			return nil, err
		}
		if ft != nil {
			wanted[ft.ID] = struct{}{}
		}
	}
	return wanted, nil
}

// visible applies the standard traversal filter: the principal can read the
// Fact and, unless the request includes retracted Facts, the Fact is not
// retracted from the principal's perspective.
func (g *Graph) visible(ctx context.Context, f *model.Fact) (bool, error) {
	if !g.eval.CanReadFact(f) {
		return false, nil
	}
	if g.params.IncludeRetracted {
		return true, nil
	}
	retracted, err := g.retract.IsRetracted(ctx, f)
	if err != nil {
		return false, err
	}
	return !retracted, nil
}

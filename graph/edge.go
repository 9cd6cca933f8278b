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

	"github.com/google/uuid"

	"github.com/mnemonic-no/grafeo-sub004/model"
)

// A FactEdge is one orientation of a two-bound Fact materialized in one
// Graph. Its ID is synthetic and distinct from the Fact's own ID, because a
// bidirectional Fact manifests as two edges sharing one underlying Fact.
// Edge equality is identity within a Graph.
type FactEdge struct {
	graph    *Graph
	id       uuid.UUID
	fact     *model.Fact
	label    string
	sourceID uuid.UUID
	destID   uuid.UUID
}

// ID returns the synthetic, per-materialization edge ID.
func (e *FactEdge) ID() uuid.UUID {
	return e.id
}

// Fact returns the underlying Fact.
func (e *FactEdge) Fact() *model.Fact {
	return e.fact
}

// Label returns the Fact's type name.
func (e *FactEdge) Label() string {
	return e.label
}

// Vertices returns the edge's endpoints: In is the destination, Out the
// source, Both the source then the destination.
func (e *FactEdge) Vertices(ctx context.Context, dir Direction) ([]*ObjectVertex, error) {
	switch dir {
	case In:
		v, err := e.graph.endpointVertex(ctx, e.destID)
		if err != nil {
			return nil, err
		}
		return []*ObjectVertex{v}, nil
	case Out:
		v, err := e.graph.endpointVertex(ctx, e.sourceID)
		if err != nil {
			return nil, err
		}
		return []*ObjectVertex{v}, nil
	case Both:
		src, err := e.graph.endpointVertex(ctx, e.sourceID)
		if err != nil {
			return nil, err
		}
		dst, err := e.graph.endpointVertex(ctx, e.destID)
		if err != nil {
			return nil, err
		}
		return []*ObjectVertex{src, dst}, nil
	}
	return nil, &UnsupportedError{Operation: fmt.Sprintf("direction %v", dir)}
}

// otherEndpoint returns the endpoint that isn't the given Object. For a
// self-loop both endpoints are the same vertex.
func (e *FactEdge) otherEndpoint(ctx context.Context, id uuid.UUID) (*ObjectVertex, error) {
	if e.sourceID == id {
		return e.graph.endpointVertex(ctx, e.destID)
	}
	return e.graph.endpointVertex(ctx, e.sourceID)
}

// Properties returns the edge's properties: values of the Fact's own
// meta-Facts (a Fact can itself be the subject of further Facts, such as
// annotations), filtered by permission and retraction like any traversal,
// with the most recently timestamped meta-Fact winning per property name.
func (e *FactEdge) Properties(ctx context.Context, keys ...string) ([]Property, error) {
	return e.graph.resolveProperties(ctx, keys, func(ctx context.Context, ch chan<- *model.Fact) error {
		return e.graph.store.MetaFacts(ctx, e.fact.ID, ch)
	}, nil)
}

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

	"github.com/google/uuid"
	opentracing "github.com/opentracing/opentracing-go"

	"github.com/mnemonic-no/grafeo-sub004/model"
	"github.com/mnemonic-no/grafeo-sub004/util/parallel"
)

// An ObjectVertex is an Object materialized in one Graph. Vertex equality is
// identity: a Graph materializes at most one vertex per Object ID, so
// pointer comparison and ID comparison agree.
type ObjectVertex struct {
	graph  *Graph
	object *model.Object
}

// ID returns the Object's ID, which is also the vertex ID.
func (v *ObjectVertex) ID() uuid.UUID {
	return v.object.ID
}

// Object returns the underlying Object.
func (v *ObjectVertex) Object() *model.Object {
	return v.object
}

// Edges streams the visible edges incident to the vertex in the given
// direction onto resCh, which it closes before returning. If labels are
// given, only Facts of the named FactTypes are considered. Facts the
// principal cannot read and retracted Facts are silently dropped. The
// enumeration stops at the traversal limit and honors ctx between elements.
func (v *ObjectVertex) Edges(ctx context.Context, dir Direction, labels []string, resCh chan<- *FactEdge) error {
	defer close(resCh)
	span, ctx := opentracing.StartSpanFromContext(ctx, "TraverseEdges")
	span.SetTag("object", v.object.ID.String())
	span.SetTag("direction", dir.String())
	defer span.Finish()

	wanted, err := v.graph.labelFilter(ctx, labels)
	if err != nil {
		return err
	}

	limit := v.graph.params.limit()
	sent := 0
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	factCh := make(chan *model.Fact, 16)
	wait := parallel.GoCaptureError(func() error {
		if filter := v.graph.params.Filter; filter.Constrains() {
			// The store bounds the candidate set by the traversal
			// limit; access and retraction filtering below may then
			// emit fewer than the limit even when more matching
			// Facts exist.
			filter.ObjectID = v.object.ID
			filter.Limit = limit
			return v.graph.store.SearchFacts(streamCtx, filter, factCh)
		}
		return v.graph.store.ObjectFacts(streamCtx, v.object.ID, factCh)
	})

	var failure error
	for f := range factCh {
		if failure != nil || sent >= limit {
			continue // drain so the producer can exit
		}
		edges, err := v.edgesForFact(ctx, f, dir, wanted)
		if err != nil {
			failure = err
			cancel()
			continue
		}
		for _, e := range edges {
			if sent >= limit {
				break
			}
			select {
			case resCh <- e:
				sent++
			case <-ctx.Done():
				failure = ctx.Err()
			}
			if failure != nil {
				break
			}
		}
		if sent >= limit {
			cancel()
		}
	}
	err = wait()
	if failure != nil {
		return failure
	}
	// Reaching the limit cancels the producer on purpose; that's success.
	if err != nil && ctx.Err() == nil {
		err = nil
	}
	return err
}

// edgesForFact returns the edges the fact contributes to this vertex in the
// given direction, after the label, permission and retraction filters. A
// bidirectional Fact contributes one edge per matching orientation.
func (v *ObjectVertex) edgesForFact(ctx context.Context, f *model.Fact, dir Direction, wanted map[uuid.UUID]struct{}) ([]*FactEdge, error) {
	if f.Bindings() != 2 {
		return nil, nil // property facts and half-bound facts are not edges
	}
	if wanted != nil {
		if _, ok := wanted[f.TypeID]; !ok {
			return nil, nil
		}
	}
	visible, err := v.graph.visible(ctx, f)
	if err != nil || !visible {
		return nil, err
	}

	id := v.object.ID
	var out []*FactEdge
	outgoing := f.SourceObjectID == id || (f.Bidirectional && f.DestinationObjectID == id)
	incoming := f.DestinationObjectID == id || (f.Bidirectional && f.SourceObjectID == id)
	if (dir == Out || dir == Both) && outgoing {
		other := f.DestinationObjectID
		if f.SourceObjectID != id {
			other = f.SourceObjectID
		}
		e, err := v.graph.edge(ctx, f, id, other)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if (dir == In || dir == Both) && incoming {
		other := f.SourceObjectID
		if f.DestinationObjectID != id {
			other = f.DestinationObjectID
		}
		e, err := v.graph.edge(ctx, f, other, id)
		if err != nil {
			return nil, err
		}
		// A self-loop materializes as the same edge for both
		// directions; don't report it twice.
		if len(out) == 0 || out[len(out)-1] != e {
			out = append(out, e)
		}
	}
	return out, nil
}

// Vertices streams the neighboring vertices in the given direction: the
// opposite endpoint of each edge Edges would report, in the same order and
// under the same filters and limit.
func (v *ObjectVertex) Vertices(ctx context.Context, dir Direction, labels []string, resCh chan<- *ObjectVertex) error {
	defer close(resCh)
	edgeCh := make(chan *FactEdge, 16)
	wait := parallel.GoCaptureError(func() error {
		return v.Edges(ctx, dir, labels, edgeCh)
	})
	var failure error
	for e := range edgeCh {
		if failure != nil {
			continue
		}
		other, err := e.otherEndpoint(ctx, v.object.ID)
		if err != nil {
			failure = err
			continue
		}
		select {
		case resCh <- other:
		case <-ctx.Done():
			failure = ctx.Err()
		}
	}
	if err := wait(); err != nil {
		return err
	}
	return failure
}

// Properties returns the vertex's properties: values of single-binding
// Facts attached to the Object, filtered like any traversal, with the most
// recently timestamped Fact winning per property name. If keys are given,
// only those property names are returned.
func (v *ObjectVertex) Properties(ctx context.Context, keys ...string) ([]Property, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "VertexProperties")
	span.SetTag("object", v.object.ID.String())
	defer span.Finish()
	return v.graph.resolveProperties(ctx, keys, func(ctx context.Context, ch chan<- *model.Fact) error {
		return v.graph.store.ObjectFacts(ctx, v.object.ID, ch)
	}, func(f *model.Fact) bool {
		return f.Bindings() == 1 && !f.IsMeta()
	})
}

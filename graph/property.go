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
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/mnemonic-no/grafeo-sub004/model"
	"github.com/mnemonic-no/grafeo-sub004/util/parallel"
)

// A Property is a named value derived from a Fact attached to a vertex or
// edge. Timestamp is the backing Fact's timestamp.
type Property struct {
	Key       string
	Value     string
	Timestamp time.Time
}

// resolveProperties streams Facts from list, keeps those passing keep (nil
// keeps all) plus the standard permission/retraction filter, and folds them
// into at most one Property per name: the most recently timestamped Fact
// wins, with the larger Fact ID as the deterministic tie-break. Results are
// sorted by key.
func (g *Graph) resolveProperties(ctx context.Context, keys []string,
	list func(ctx context.Context, ch chan<- *model.Fact) error,
	keep func(f *model.Fact) bool,
) ([]Property, error) {
	wantedKeys := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wantedKeys[k] = struct{}{}
	}

	factCh := make(chan *model.Fact, 16)
	wait := parallel.GoCaptureError(func() error {
		return list(ctx, factCh)
	})
	type winner struct {
		fact *model.Fact
	}
	best := make(map[string]winner)
	var failure error
	for f := range factCh {
		if failure != nil {
			continue
		}
		if keep != nil && !keep(f) {
			continue
		}
		visible, err := g.visible(ctx, f)
		if err != nil {
			failure = err
			continue
		}
		if !visible {
			continue
		}
		name, err := g.typeName(ctx, f.TypeID)
		if err != nil {
			failure = err
			continue
		}
		if len(wantedKeys) > 0 {
			if _, ok := wantedKeys[name]; !ok {
				continue
			}
		}
		cur, ok := best[name]
		if !ok || newerProperty(f, cur.fact) {
			best[name] = winner{fact: f}
		}
	}
	if err := wait(); err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}

	res := make([]Property, 0, len(best))
	for name, w := range best {
		res = append(res, Property{Key: name, Value: w.fact.Value, Timestamp: w.fact.Timestamp})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })
	return res, nil
}

// newerProperty reports whether a should replace b as a property value:
// higher timestamp wins, and on an exact tie the larger Fact ID wins so the
// choice is deterministic.
func newerProperty(a, b *model.Fact) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) > 0
}

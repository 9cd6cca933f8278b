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

// Package memstore is a complete in-memory implementation of storage.Store.
// It is thread-safe and keeps ordered secondary indexes so enumerations are
// deterministic. It backs the unit tests across this repo and is suitable
// for small single-process deployments; it is not durable.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/mnemonic-no/grafeo-sub004/model"
	"github.com/mnemonic-no/grafeo-sub004/storage"
)

// defaultSearchLimit caps SearchFacts when the criteria has no limit.
const defaultSearchLimit = 25

// objectValueKey orders Objects by (typeID, value) for the uniqueness index.
type objectValueKey struct {
	typeID   uuid.UUID
	value    string
	objectID uuid.UUID
}

func objectValueLess(a, b objectValueKey) bool {
	if c := bytes.Compare(a.typeID[:], b.typeID[:]); c != 0 {
		return c < 0
	}
	return a.value < b.value
}

// refKey orders Fact references under an owning entity (an Object for the
// bound-facts index, a parent Fact for the meta-facts index).
type refKey struct {
	ownerID uuid.UUID
	factID  uuid.UUID
}

func refLess(a, b refKey) bool {
	if c := bytes.Compare(a.ownerID[:], b.ownerID[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.factID[:], b.factID[:]) < 0
}

// Store implements storage.Store in memory.
type Store struct {
	lock              sync.RWMutex
	objects           map[uuid.UUID]*model.Object
	objectsByValue    *btree.BTreeG[objectValueKey]
	facts             map[uuid.UUID]*model.Fact
	factsByObject     *btree.BTreeG[refKey]
	metaFacts         *btree.BTreeG[refKey]
	factByFingerprint map[string]uuid.UUID
	origins           map[uuid.UUID]*model.Origin
	originsByName     map[string]uuid.UUID
	factTypes         map[uuid.UUID]*model.FactType
	factTypesByName   map[string]uuid.UUID
	objectTypes       map[uuid.UUID]*model.ObjectType
}

var _ storage.Store = (*Store)(nil)

// New returns an empty Store preloaded with the well known FactTypes.
func New() *Store {
	s := &Store{
		objects:           make(map[uuid.UUID]*model.Object),
		objectsByValue:    btree.NewG(8, objectValueLess),
		facts:             make(map[uuid.UUID]*model.Fact),
		factsByObject:     btree.NewG(8, refLess),
		metaFacts:         btree.NewG(8, refLess),
		factByFingerprint: make(map[string]uuid.UUID),
		origins:           make(map[uuid.UUID]*model.Origin),
		originsByName:     make(map[string]uuid.UUID),
		factTypes:         make(map[uuid.UUID]*model.FactType),
		factTypesByName:   make(map[string]uuid.UUID),
		objectTypes:       make(map[uuid.UUID]*model.ObjectType),
	}
	for _, ft := range model.WellKnownFactTypes() {
		s.AddFactType(ft)
	}
	return s
}

// AddFactType registers a FactType definition. It is also how deployments
// and tests bootstrap their schema.
func (s *Store) AddFactType(ft model.FactType) {
	s.lock.Lock()
	defer s.lock.Unlock()
	cp := ft
	s.factTypes[ft.ID] = &cp
	s.factTypesByName[ft.Name] = ft.ID
}

// AddObjectType registers an ObjectType definition.
func (s *Store) AddObjectType(ot model.ObjectType) {
	s.lock.Lock()
	defer s.lock.Unlock()
	cp := ot
	s.objectTypes[ot.ID] = &cp
}

func (s *Store) Object(ctx context.Context, id uuid.UUID) (*model.Object, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		return nil, nil
	}
	return obj.Clone(), nil
}

func (s *Store) ObjectByValue(ctx context.Context, typeID uuid.UUID, value string) (*model.Object, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var id uuid.UUID
	found := false
	s.objectsByValue.AscendGreaterOrEqual(objectValueKey{typeID: typeID, value: value},
		func(k objectValueKey) bool {
			if k.typeID == typeID && k.value == value {
				id, found = k.objectID, true
			}
			return false
		})
	if !found {
		return nil, nil
	}
	return s.objects[id].Clone(), nil
}

func (s *Store) StoreObject(ctx context.Context, obj *model.Object) (*model.Object, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.objects[obj.ID]; ok {
		return nil, fmt.Errorf("object %v already stored", obj.ID)
	}
	cp := obj.Clone()
	s.objects[cp.ID] = cp
	s.objectsByValue.ReplaceOrInsert(objectValueKey{typeID: cp.TypeID, value: cp.Value, objectID: cp.ID})
	return cp.Clone(), nil
}

func (s *Store) Fact(ctx context.Context, id uuid.UUID) (*model.Fact, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	f, ok := s.facts[id]
	if !ok {
		return nil, nil
	}
	return f.Clone(), nil
}

func (s *Store) StoreFact(ctx context.Context, fact *model.Fact) (*model.Fact, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.facts[fact.ID]; ok {
		return nil, fmt.Errorf("fact %v already stored", fact.ID)
	}
	cp := fact.Clone()
	s.facts[cp.ID] = cp
	s.factByFingerprint[cp.Fingerprint()] = cp.ID
	if cp.SourceObjectID != uuid.Nil {
		s.factsByObject.ReplaceOrInsert(refKey{ownerID: cp.SourceObjectID, factID: cp.ID})
	}
	if cp.DestinationObjectID != uuid.Nil {
		s.factsByObject.ReplaceOrInsert(refKey{ownerID: cp.DestinationObjectID, factID: cp.ID})
	}
	if cp.InReferenceToID != uuid.Nil {
		s.metaFacts.ReplaceOrInsert(refKey{ownerID: cp.InReferenceToID, factID: cp.ID})
	}
	return cp.Clone(), nil
}

func (s *Store) RefreshFact(ctx context.Context, fact *model.Fact) (*model.Fact, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	stored, ok := s.facts[fact.ID]
	if !ok {
		return nil, fmt.Errorf("fact %v not stored", fact.ID)
	}
	stored.LastSeenTimestamp = fact.LastSeenTimestamp
	stored.LastSeenByID = fact.LastSeenByID
	return stored.Clone(), nil
}

func (s *Store) FlagFact(ctx context.Context, id uuid.UUID, flags model.Flags) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	stored, ok := s.facts[id]
	if !ok {
		return fmt.Errorf("fact %v not stored", id)
	}
	stored.Flags |= flags
	return nil
}

func (s *Store) AddFactACL(ctx context.Context, factID uuid.UUID, entries []model.FactAclEntry) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	stored, ok := s.facts[factID]
	if !ok {
		return fmt.Errorf("fact %v not stored", factID)
	}
	for _, e := range entries {
		if !stored.InACL(e.SubjectID) {
			stored.ACL = append(stored.ACL, e)
		}
	}
	return nil
}

func (s *Store) AddFactComment(ctx context.Context, factID uuid.UUID, comment model.FactComment) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	stored, ok := s.facts[factID]
	if !ok {
		return fmt.Errorf("fact %v not stored", factID)
	}
	stored.Comments = append(stored.Comments, comment)
	return nil
}

func (s *Store) ExistingFact(ctx context.Context, candidate *model.Fact) (*model.Fact, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	id, ok := s.factByFingerprint[candidate.Fingerprint()]
	if !ok {
		return nil, nil
	}
	return s.facts[id].Clone(), nil
}

func (s *Store) ObjectFacts(ctx context.Context, objectID uuid.UUID, resCh chan<- *model.Fact) error {
	return s.streamRefs(ctx, s.factsByObject, objectID, resCh)
}

func (s *Store) MetaFacts(ctx context.Context, factID uuid.UUID, resCh chan<- *model.Fact) error {
	return s.streamRefs(ctx, s.metaFacts, factID, resCh)
}

// streamRefs snapshots the facts referenced under ownerID, then streams them
// without holding the lock so a slow consumer never blocks writers.
func (s *Store) streamRefs(ctx context.Context, idx *btree.BTreeG[refKey], ownerID uuid.UUID, resCh chan<- *model.Fact) error {
	defer close(resCh)
	s.lock.RLock()
	var snapshot []*model.Fact
	idx.AscendGreaterOrEqual(refKey{ownerID: ownerID}, func(k refKey) bool {
		if k.ownerID != ownerID {
			return false
		}
		snapshot = append(snapshot, s.facts[k.factID].Clone())
		return true
	})
	s.lock.RUnlock()
	for _, f := range snapshot {
		select {
		case resCh <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Store) SearchFacts(ctx context.Context, criteria storage.FactsCriteria, resCh chan<- *model.Fact) error {
	defer close(resCh)
	limit := criteria.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	s.lock.RLock()
	var snapshot []*model.Fact
	// Walk the object index when the criteria pins an Object; otherwise
	// scan. The scan is acceptable for an in-memory store.
	if criteria.ObjectID != uuid.Nil {
		s.factsByObject.AscendGreaterOrEqual(refKey{ownerID: criteria.ObjectID}, func(k refKey) bool {
			if k.ownerID != criteria.ObjectID {
				return false
			}
			if f := s.facts[k.factID]; criteria.Matches(f) {
				snapshot = append(snapshot, f.Clone())
			}
			return len(snapshot) < limit
		})
	} else {
		for _, f := range s.facts {
			if criteria.Matches(f) {
				snapshot = append(snapshot, f.Clone())
				if len(snapshot) >= limit {
					break
				}
			}
		}
	}
	s.lock.RUnlock()
	for _, f := range snapshot {
		select {
		case resCh <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Store) Origin(ctx context.Context, id uuid.UUID) (*model.Origin, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	o, ok := s.origins[id]
	if !ok {
		return nil, nil
	}
	return o.Clone(), nil
}

func (s *Store) OriginByName(ctx context.Context, name string) (*model.Origin, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	id, ok := s.originsByName[name]
	if !ok {
		return nil, nil
	}
	return s.origins[id].Clone(), nil
}

func (s *Store) StoreOrigin(ctx context.Context, origin *model.Origin) (*model.Origin, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.origins[origin.ID]; ok {
		return nil, fmt.Errorf("origin %v already stored", origin.ID)
	}
	if _, ok := s.originsByName[origin.Name]; ok {
		return nil, fmt.Errorf("origin named %q already stored", origin.Name)
	}
	cp := origin.Clone()
	s.origins[cp.ID] = cp
	s.originsByName[cp.Name] = cp.ID
	return cp.Clone(), nil
}

func (s *Store) FactType(ctx context.Context, id uuid.UUID) (*model.FactType, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	ft, ok := s.factTypes[id]
	if !ok {
		return nil, nil
	}
	cp := *ft
	return &cp, nil
}

func (s *Store) FactTypeByName(ctx context.Context, name string) (*model.FactType, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	id, ok := s.factTypesByName[name]
	if !ok {
		return nil, nil
	}
	cp := *s.factTypes[id]
	return &cp, nil
}

func (s *Store) ObjectType(ctx context.Context, id uuid.UUID) (*model.ObjectType, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	ot, ok := s.objectTypes[id]
	if !ok {
		return nil, nil
	}
	cp := *ot
	return &cp, nil
}

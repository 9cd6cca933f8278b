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

// Package locks provides a keyed mutex: a dynamic table of independent locks
// addressed by string key. Holders of different keys never contend, and the
// table holds no memory for keys nobody is waiting on.
package locks

import (
	"context"
	"sync"
)

// Keyed is a table of mutexes addressed by key. The zero value is not
// usable; call NewKeyed.
type Keyed struct {
	lock sync.Mutex
	held map[string]*holder
}

// holder is one key's lock state. sem has capacity 1; owning the single slot
// means owning the lock. refs counts owners plus waiters so that the entry
// can be dropped from the table once the last of them is gone.
type holder struct {
	refs int
	sem  chan struct{}
}

// NewKeyed returns an empty lock table.
func NewKeyed() *Keyed {
	return &Keyed{held: make(map[string]*holder)}
}

// Acquire blocks until it holds the lock for the key, or until ctx expires.
// On success it returns a release function which must be called exactly once,
// on every exit path. On ctx expiry it returns ctx.Err() and no lock is
// held.
func (k *Keyed) Acquire(ctx context.Context, key string) (release func(), err error) {
	k.lock.Lock()
	h, ok := k.held[key]
	if !ok {
		h = &holder{sem: make(chan struct{}, 1)}
		k.held[key] = h
	}
	h.refs++
	k.lock.Unlock()

	select {
	case h.sem <- struct{}{}:
		return func() {
			<-h.sem
			k.unref(key, h)
		}, nil
	case <-ctx.Done():
		k.unref(key, h)
		return nil, ctx.Err()
	}
}

func (k *Keyed) unref(key string, h *holder) {
	k.lock.Lock()
	h.refs--
	if h.refs == 0 {
		delete(k.held, key)
	}
	k.lock.Unlock()
}

// keys returns the number of keys currently tracked. Tests use this to
// verify the table doesn't leak entries.
func (k *Keyed) keys() int {
	k.lock.Lock()
	defer k.lock.Unlock()
	return len(k.held)
}

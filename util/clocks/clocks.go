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

// Package clocks provides a mockable way to read the current time. Code that
// stamps Facts takes a Source so tests can control timestamps exactly.
package clocks

import (
	"sync"
	"time"
)

// A Source tells the current time. This package provides two sources: Wall
// and NewMock.
type Source interface {
	// Now returns the current time.
	Now() time.Time
}

type wallClock struct{}

// Wall is the normal clock, as provided by time.Now().
var Wall Source = wallClock{}

func (wallClock) Now() time.Time {
	return time.Now()
}

// A Mock is a Source whose time only moves when told to. It is safe for
// concurrent use.
type Mock struct {
	lock sync.Mutex
	now  time.Time
}

// NewMock returns a Mock set to the given time.
func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.now
}

// Advance moves the mock's time forward by d and returns the new time.
func (m *Mock) Advance(d time.Duration) time.Time {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Set moves the mock's time to t.
func (m *Mock) Set(t time.Time) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.now = t
}

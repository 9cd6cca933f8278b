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

package clocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Wall(t *testing.T) {
	before := time.Now()
	got := Wall.Now()
	after := time.Now()
	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func Test_Mock(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock := NewMock(start)
	assert.Equal(t, start, mock.Now())
	assert.Equal(t, start, mock.Now(), "time must not move on its own")

	next := mock.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), next)
	assert.Equal(t, next, mock.Now())

	mock.Set(start)
	assert.Equal(t, start, mock.Now())
}

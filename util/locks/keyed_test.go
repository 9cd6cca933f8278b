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

package locks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemonic-no/grafeo-sub004/util/parallel"
)

func Test_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	k := NewKeyed()
	counter := 0
	err := parallel.Invoke(ctx,
		func(ctx context.Context) error {
			for i := 0; i < 1000; i++ {
				release, err := k.Acquire(ctx, "fp")
				if err != nil {
					return err
				}
				counter++
				release()
			}
			return nil
		},
		func(ctx context.Context) error {
			for i := 0; i < 1000; i++ {
				release, err := k.Acquire(ctx, "fp")
				if err != nil {
					return err
				}
				counter++
				release()
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 2000, counter)
	assert.Equal(t, 0, k.keys(), "table must not leak entries")
}

func Test_DistinctKeysDontContend(t *testing.T) {
	ctx := context.Background()
	k := NewKeyed()
	releaseA, err := k.Acquire(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	// Holding "a" must not delay "b" at all.
	ctxB, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	releaseB, err := k.Acquire(ctxB, "b")
	require.NoError(t, err)
	releaseB()
}

func Test_AcquireTimesOut(t *testing.T) {
	ctx := context.Background()
	k := NewKeyed()
	release, err := k.Acquire(ctx, "fp")
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = k.Acquire(short, "fp")
	assert.Equal(t, context.DeadlineExceeded, err)

	// The failed waiter must not have corrupted the entry: release and
	// reacquire.
	release()
	release2, err := k.Acquire(ctx, "fp")
	require.NoError(t, err)
	release2()
	assert.Equal(t, 0, k.keys())
}

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

// Package config defines the JSON configuration file format.
package config

import "time"

// Grafeo is the root of the configuration. Every section is optional; nil
// sections take their defaults.
type Grafeo struct {
	// LogLevel is a logrus level name like "info" or "debug".
	LogLevel string  `json:"logLevel,omitempty"`
	Graph    *Graph  `json:"graph,omitempty"`
	Ingest   *Ingest `json:"ingest,omitempty"`
}

// Graph configures traversal queries.
type Graph struct {
	// DefaultTraversalLimit caps the results of a single traversal step
	// when the query does not pick its own limit.
	DefaultTraversalLimit int `json:"defaultTraversalLimit,omitempty"`
}

// Ingest configures the fact ingestion coordinator.
type Ingest struct {
	// DefaultOriginTrust is assigned to Origins created implicitly for
	// Subjects asserting their first Fact.
	DefaultOriginTrust float32 `json:"defaultOriginTrust,omitempty"`
	// LockWaitMillis bounds the wait for per-fact coordination locks.
	LockWaitMillis int `json:"lockWaitMillis,omitempty"`
}

// LockWait returns the configured lock wait as a duration, or zero when
// unset (callers apply their own default).
func (i *Ingest) LockWait() time.Duration {
	if i == nil {
		return 0
	}
	return time.Duration(i.LockWaitMillis) * time.Millisecond
}

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

package ingest

import (
	"github.com/prometheus/client_golang/prometheus"

	metricsutil "github.com/mnemonic-no/grafeo-sub004/util/metrics"
)

type ingestMetrics struct {
	factsCreated   prometheus.Counter
	factsRefreshed prometheus.Counter
	originsCreated prometheus.Counter
}

var metrics ingestMetrics

func init() {
	mr := metricsutil.Registry{R: prometheus.DefaultRegisterer}
	metrics = ingestMetrics{
		factsCreated: mr.NewCounter(prometheus.CounterOpts{
			Namespace: "grafeo",
			Subsystem: "ingest",
			Name:      "facts_created",
			Help:      "The number of new Facts persisted.",
		}),
		factsRefreshed: mr.NewCounter(prometheus.CounterOpts{
			Namespace: "grafeo",
			Subsystem: "ingest",
			Name:      "facts_refreshed",
			Help: `The number of save requests that matched an existing Fact.

The existing Fact had its lastSeen fields refreshed and any ACL additions
and comment merged, instead of a duplicate being created.
`,
		}),
		originsCreated: mr.NewCounter(prometheus.CounterOpts{
			Namespace: "grafeo",
			Subsystem: "ingest",
			Name:      "origins_created",
			Help:      "The number of Origins auto-vivified for principals on first use.",
		}),
	}
}

// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics instruments a Transport's request handling. A nil *Metrics is
// valid and every method on it is a no-op, so metrics stay optional
// without every call site special-casing it.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	truncs   prometheus.Counter
}

// NewMetrics registers the fmmd query-server collectors against reg. Pass
// prometheus.DefaultRegisterer to use the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fmmd_query_requests_total",
			Help: "Total query-server requests, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fmmd_query_duration_seconds",
			Help:    "Query-server request latency, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		truncs: factory.NewCounter(prometheus.CounterOpts{
			Name: "fmmd_query_truncated_responses_total",
			Help: "Responses that exceeded the response-size cap and were truncated.",
		}),
	}
}

func (m *Metrics) observe(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) observeTruncation() {
	if m == nil {
		return
	}
	m.truncs.Inc()
}

// Handler returns the /metrics HTTP handler serving the default Prometheus
// registry in text exposition format, for use alongside the stdio
// transport (§9: an HTTP endpoint is an optional addition, not part of
// the stdio protocol itself).
func Handler() http.Handler {
	return promhttp.Handler()
}

// Copyright 2024 The mefwriter Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics instruments the writer with Prometheus counters and
// gauges, wiring github.com/prometheus/client_golang into the one
// observability concern the teacher's own stack carries (see
// SPEC_FULL.md's DOMAIN STACK section).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors groups every metric the writer updates. Callers register it
// once against a prometheus.Registerer of their choosing (the default
// registry, or a private one in tests).
type Collectors struct {
	BlocksWritten       prometheus.Counter
	BytesWritten        prometheus.Counter
	SegmentRollovers    prometheus.Counter
	Discontinuities     prometheus.Counter
	AnnotationRecords   prometheus.Counter
	ActiveChannels      prometheus.Gauge
}

// New constructs a fresh Collectors. It does not register them; call
// MustRegister explicitly so tests can use an isolated registry.
func New(namespace string) *Collectors {
	return &Collectors{
		BlocksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_written_total",
			Help:      "Number of RED-compressed blocks appended to data files.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_bytes_written_total",
			Help:      "Total compressed block bytes appended to data files.",
		}),
		SegmentRollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_rollovers_total",
			Help:      "Number of segment rollovers performed.",
		}),
		Discontinuities: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discontinuities_total",
			Help:      "Number of blocks marked discontinuous.",
		}),
		AnnotationRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotation_records_total",
			Help:      "Number of annotation records appended.",
		}),
		ActiveChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_channels",
			Help:      "Number of channel writers currently open.",
		}),
	}
}

// MustRegister registers every collector against reg, panicking on a
// duplicate-registration error (mirrors prometheus.MustRegister's own
// contract).
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.BlocksWritten,
		c.BytesWritten,
		c.SegmentRollovers,
		c.Discontinuities,
		c.AnnotationRecords,
		c.ActiveChannels,
	)
}

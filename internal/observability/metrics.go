// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geonamer"

// Metrics holds the Prometheus collectors of the name resolution pipeline. All methods are
// safe to call on a nil *Metrics, which disables instrumentation.
type Metrics struct {
	// Geocoding metrics.
	CacheLookups    *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeDuration prometheus.Histogram

	// Resolver metrics.
	BatchSize      prometheus.Histogram
	BatchDuration  prometheus.Histogram
	Fallbacks      prometheus.Counter
	Retries        prometheus.Counter
	PendingRecords prometheus.Gauge
	PumpRunning    prometheus.Gauge
}

// NewMetrics creates all pipeline metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Coordinate cache lookups by result.",
		}, []string{"result"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_duration_seconds",
			Help:      "Reverse geocoding request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of records claimed per pump batch.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete pump batch including the store merge.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Record sides that fell back to a coordinate label.",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Records granted their single retry.",
		}),
		PendingRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_records",
			Help:      "Records waiting in the pending set.",
		}),
		PumpRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pump_running",
			Help:      "1 while the batch pump is draining, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		m.CacheLookups,
		m.GeocodeRequests,
		m.GeocodeDuration,
		m.BatchSize,
		m.BatchDuration,
		m.Fallbacks,
		m.Retries,
		m.PendingRecords,
		m.PumpRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid "already registered"
// panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// GeocodeRequest records the outcome and duration of a single adapter call.
func (m *Metrics) GeocodeRequest(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.GeocodeRequests.WithLabelValues(outcome).Inc()
	m.GeocodeDuration.Observe(took.Seconds())
}

// Batch records the size and duration of a completed pump batch.
func (m *Metrics) Batch(size int, took time.Duration) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(size))
	m.BatchDuration.Observe(took.Seconds())
}

func (m *Metrics) Fallback() {
	if m == nil {
		return
	}
	m.Fallbacks.Inc()
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Metrics) Pending(n int) {
	if m == nil {
		return
	}
	m.PendingRecords.Set(float64(n))
}

func (m *Metrics) Running(running bool) {
	if m == nil {
		return
	}
	if running {
		m.PumpRunning.Set(1)
		return
	}
	m.PumpRunning.Set(0)
}

package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a measurement run.
type Metrics struct {
	Registry      *prometheus.Registry
	ProbesTotal   *prometheus.CounterVec
	ProbeDuration prometheus.Histogram
	FailuresTotal *prometheus.CounterVec
	ResetsTotal   prometheus.Counter
	CacheHits     prometheus.Counter
	GroupsTotal   *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	probes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commute_probes_total",
			Help: "Total area probes by outcome.",
		},
		[]string{"outcome"},
	)
	probeDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "commute_probe_duration_seconds",
			Help:    "Wall time of a single area probe, pacing excluded.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commute_failures_total",
			Help: "Total failed probes by error type.",
		},
		[]string{"error_type"},
	)
	resets := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commute_resets_total",
			Help: "Total session resets to the baseline route.",
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commute_cache_hits_total",
			Help: "Total probes answered from the area cache.",
		},
	)
	groups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commute_groups_total",
			Help: "Total aggregated area groups by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(probes, probeDuration, failures, resets, cacheHits, groups)

	return &Metrics{
		Registry:      registry,
		ProbesTotal:   probes,
		ProbeDuration: probeDuration,
		FailuresTotal: failures,
		ResetsTotal:   resets,
		CacheHits:     cacheHits,
		GroupsTotal:   groups,
	}
}

// IncProbe increments the probe counter for an outcome (success or failure).
func (m *Metrics) IncProbe(outcome string) {
	if m == nil {
		return
	}
	m.ProbesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records a probe duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.ProbeDuration.Observe(d.Seconds())
}

// IncFailure increments the failure counter for a type label.
func (m *Metrics) IncFailure(errorType string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(errorType).Inc()
}

// IncReset increments the reset counter.
func (m *Metrics) IncReset() {
	if m == nil {
		return
	}
	m.ResetsTotal.Inc()
}

// IncCacheHit increments the cache hit counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// IncGroup increments the group counter (scored or empty).
func (m *Metrics) IncGroup(result string) {
	if m == nil {
		return
	}
	m.GroupsTotal.WithLabelValues(result).Inc()
}

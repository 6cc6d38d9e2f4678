// Package observability implements run/error/perf logging, the
// source-health rollup, and the Prometheus metrics registry exposed
// over the debug HTTP mux (C14).
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the Prometheus registry for the ingestor. One instance
// is created at process start and shared across the scheduler,
// workers, catalog generator, and cache.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RecordsIngested  *prometheus.CounterVec
	DuplicatesRemoved prometheus.Counter
	SourceErrors     *prometheus.CounterVec
	SourceHealth     *prometheus.GaugeVec // 1=healthy, 0.5=degraded, 0=failed

	FetchDuration    *prometheus.HistogramVec
	NormalizeDuration *prometheus.HistogramVec
	ValidateDuration *prometheus.HistogramVec
	SaveDuration     *prometheus.HistogramVec

	CacheHits   *prometheus.CounterVec // labeled by tier: hot/warm/miss
	CatalogSize prometheus.Gauge
}

// NewMetrics registers and returns the metrics set on a fresh
// registry (callers mount it behind /metrics).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestor_runs_total",
			Help: "Ingestion runs by source and outcome.",
		}, []string{"source", "outcome"}),
		RecordsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestor_records_ingested_total",
			Help: "Normalized records produced per source.",
		}, []string{"source"}),
		DuplicatesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingestor_duplicates_removed_total",
			Help: "Records removed by the deduplicator across all catalog generations.",
		}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestor_source_errors_total",
			Help: "Errors recorded per source by severity.",
		}, []string{"source", "severity"}),
		SourceHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ingestor_source_health",
			Help: "Per-source health rollup: 1=healthy, 0.5=degraded, 0=failed.",
		}, []string{"source"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingestor_fetch_duration_ms",
			Help:    "fetch_raw duration per source, in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}, []string{"source"}),
		NormalizeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingestor_normalize_duration_ms",
			Help:    "normalize duration per source, in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"source"}),
		ValidateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingestor_validate_duration_ms",
			Help:    "validation duration per source, in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"source"}),
		SaveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingestor_save_duration_ms",
			Help:    "snapshot persistence duration per source, in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"source"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestor_cache_hits_total",
			Help: "Query cache results by tier.",
		}, []string{"tier"}),
		CatalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingestor_catalog_size",
			Help: "Number of gigs in the current catalog.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal, m.RecordsIngested, m.DuplicatesRemoved, m.SourceErrors, m.SourceHealth,
		m.FetchDuration, m.NormalizeDuration, m.ValidateDuration, m.SaveDuration,
		m.CacheHits, m.CatalogSize,
	)

	return m
}

// ObserveStageDuration records a pipeline stage's elapsed time under
// the matching histogram.
func (m *Metrics) ObserveStageDuration(stage, source string, d time.Duration) {
	ms := float64(d.Milliseconds())
	switch stage {
	case "fetch":
		m.FetchDuration.WithLabelValues(source).Observe(ms)
	case "normalize":
		m.NormalizeDuration.WithLabelValues(source).Observe(ms)
	case "validate":
		m.ValidateDuration.WithLabelValues(source).Observe(ms)
	case "save":
		m.SaveDuration.WithLabelValues(source).Observe(ms)
	}
}

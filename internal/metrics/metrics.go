// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "canon"

// Metrics owns a private registry so tests and multiple instances never collide
// on the global one.
type Metrics struct {
	registry *prometheus.Registry

	transferRuns     *prometheus.CounterVec
	transferRecords  *prometheus.CounterVec
	transferDuration prometheus.Histogram
	enrichment       *prometheus.CounterVec
	enrichmentCache  *prometheus.CounterVec
	autoTransfers    prometheus.Counter
	stagingImported  prometheus.Counter
	httpRequests     *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		transferRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_runs_total",
			Help:      "Transfer runs by outcome.",
		}, []string{"outcome"}),

		transferRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_records_total",
			Help:      "Staging bookmarks processed by transfer runs, by result.",
		}, []string{"result"}),

		transferDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Duration of transfer runs.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),

		enrichment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_total",
			Help:      "Metadata enrichment outcomes.",
		}, []string{"result"}),

		enrichmentCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_cache_total",
			Help:      "Enrichment cache lookups by result.",
		}, []string{"result"}),

		autoTransfers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_auto_transfers_total",
			Help:      "Canonical reads that triggered a transfer.",
		}),

		stagingImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staging_imported_total",
			Help:      "Bookmarks written to the staging store by imports.",
		}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.transferRuns,
		m.transferRecords,
		m.transferDuration,
		m.enrichment,
		m.enrichmentCache,
		m.autoTransfers,
		m.stagingImported,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	m.transferRuns.WithLabelValues(outcome).Inc()
	m.transferDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveRecord(result string) {
	m.transferRecords.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEnrichment(result string) {
	m.enrichment.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEnrichmentCache(result string) {
	m.enrichmentCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAutoTransfer() {
	m.autoTransfers.Inc()
}

func (m *Metrics) ObserveStagingImport(n int) {
	m.stagingImported.Add(float64(n))
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int) {
	m.httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Package metrics holds the Prometheus collectors exported on /metrics.
// Collectors live on a private registry so tests can build isolated sets.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "weconnect"

// Metrics groups the HTTP and business collectors. A nil *Metrics is valid
// and records nothing, which keeps services usable without a registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	documentsCreated *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	conflicts        *prometheus.CounterVec
	trashPurged      *prometheus.CounterVec
	jobsProcessed    *prometheus.CounterVec
}

// New builds the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		documentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_created_total",
			Help:      "Sales documents created by type.",
		}, []string{"document_type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_transitions_total",
			Help:      "Lifecycle changes by type and target status.",
		}, []string{"document_type", "to"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_version_conflicts_total",
			Help:      "Writes rejected because the caller's version was stale.",
		}, []string{"document_type"}),
		trashPurged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trash_purged_total",
			Help:      "Records hard-deleted from the trash by kind and reason.",
		}, []string{"kind", "reason"}),
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Background jobs by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.documentsCreated,
		m.transitions,
		m.conflicts,
		m.trashPurged,
		m.jobsProcessed,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) DocumentCreated(documentType string) {
	if m == nil {
		return
	}
	m.documentsCreated.WithLabelValues(documentType).Inc()
}

func (m *Metrics) Transition(documentType, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(documentType, to).Inc()
}

func (m *Metrics) VersionConflict(documentType string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(documentType).Inc()
}

// TrashPurged counts hard deletes; reason is "manual" or "retention".
func (m *Metrics) TrashPurged(kind, reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.trashPurged.WithLabelValues(kind, reason).Add(float64(n))
}

// JobProcessed counts worker outcomes: "sent", "retry", "dead_letter", "skipped".
func (m *Metrics) JobProcessed(jobType, outcome string) {
	if m == nil {
		return
	}
	m.jobsProcessed.WithLabelValues(jobType, outcome).Inc()
}

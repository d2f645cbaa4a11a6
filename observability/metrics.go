// Package observability collects Prometheus metrics for the engine.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the engine's Prometheus instruments on a private
// registry.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	gatewayCalls     *prometheus.CounterVec
	degradedReads    *prometheus.CounterVec
	chunksSkipped    prometheus.Counter
	documentsSkipped *prometheus.CounterVec
	buildDuration    *prometheus.HistogramVec
}

// NewMetrics initialises the registry and the engine instruments.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	gatewayCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_gateway_calls_total",
		Help: "Ledger gateway calls by operation and outcome.",
	}, []string{"op", "outcome"})
	degradedReads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_degraded_reads_total",
		Help: "Reads that fell back to a best-effort result.",
	}, []string{"component"})
	chunksSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_chunks_skipped_total",
		Help: "Journal-entry chunks dropped after a failed grouped read.",
	})
	documentsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_documents_skipped_total",
		Help: "Pending documents excluded from the projection.",
	}, []string{"reason"})
	buildDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_statement_build_seconds",
		Help:    "Statement build duration per view.",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})
	registry.MustRegister(gatewayCalls, degradedReads, chunksSkipped, documentsSkipped, buildDuration)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		gatewayCalls:     gatewayCalls,
		degradedReads:    degradedReads,
		chunksSkipped:    chunksSkipped,
		documentsSkipped: documentsSkipped,
		buildDuration:    buildDuration,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// GatewayCall records one gateway read and its outcome.
func (m *Metrics) GatewayCall(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayCalls.WithLabelValues(op, outcome).Inc()
}

// DegradedRead records a read that returned a fallback result.
func (m *Metrics) DegradedRead(component string) {
	if m == nil {
		return
	}
	m.degradedReads.WithLabelValues(component).Inc()
}

// ChunkSkipped records a grouped read chunk dropped after failure.
func (m *Metrics) ChunkSkipped() {
	if m == nil {
		return
	}
	m.chunksSkipped.Inc()
}

// DocumentSkipped records a pending document excluded from projection.
func (m *Metrics) DocumentSkipped(reason string) {
	if m == nil {
		return
	}
	m.documentsSkipped.WithLabelValues(reason).Inc()
}

// ObserveBuild records the duration of one statement build.
func (m *Metrics) ObserveBuild(view string, start time.Time) {
	if m == nil {
		return
	}
	m.buildDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
}

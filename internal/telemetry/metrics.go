// Package telemetry exposes Prometheus metrics for queries and index builds,
// and keeps a small in-memory log of recent query patterns.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Degradation components.
const (
	ComponentEmbedder = "embedder"
	ComponentReranker = "reranker"
	ComponentLexical  = "lexical"
)

// Metrics holds the engine's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal      *prometheus.CounterVec
	QueryDuration     *prometheus.HistogramVec
	ZeroResultQueries prometheus.Counter
	Degradations      *prometheus.CounterVec
	IndexDocuments    prometheus.Gauge
	IndexBuilds       prometheus.Counter
}

// NewMetrics creates and registers all collectors, plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelrag_queries_total",
				Help: "Total number of search queries by mode",
			},
			[]string{"mode"},
		),
		QueryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "travelrag_query_duration_seconds",
				Help:    "Duration of search queries in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		ZeroResultQueries: f.NewCounter(prometheus.CounterOpts{
			Name: "travelrag_zero_result_queries_total",
			Help: "Total number of queries that returned no results",
		}),
		Degradations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelrag_degradations_total",
				Help: "Times a component failed and a fallback was used",
			},
			[]string{"component"},
		),
		IndexDocuments: f.NewGauge(prometheus.GaugeOpts{
			Name: "travelrag_index_documents",
			Help: "Number of documents in the current index",
		}),
		IndexBuilds: f.NewCounter(prometheus.CounterOpts{
			Name: "travelrag_index_builds_total",
			Help: "Total number of completed index builds",
		}),
	}
}

// ObserveQuery records one query.
func (m *Metrics) ObserveQuery(mode string, results int, d time.Duration) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(mode).Inc()
	m.QueryDuration.WithLabelValues(mode).Observe(d.Seconds())
	if results == 0 {
		m.ZeroResultQueries.Inc()
	}
}

// Degraded records a fallback taken by component.
func (m *Metrics) Degraded(component string) {
	if m == nil {
		return
	}
	m.Degradations.WithLabelValues(component).Inc()
}

// IndexBuilt records a completed build of n documents.
func (m *Metrics) IndexBuilt(n int) {
	if m == nil {
		return
	}
	m.IndexBuilds.Inc()
	m.IndexDocuments.Set(float64(n))
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package observability provides Prometheus instrumentation for the query
// pipeline, grounded on the teacher's internal/observability/metrics.go
// singleton pattern but scoped down to C1-C10's concerns: query execution,
// cache effectiveness, and the two admission-control stages (deny-list,
// preflight) that reject a query before it ever reaches the database.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// Metrics holds every Prometheus collector Lotus registers.
type Metrics struct {
	queriesTotal     *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissTotal   *prometheus.CounterVec
	denylistBlocked  *prometheus.CounterVec
	preflightBlocked *prometheus.CounterVec
	bindErrors       *prometheus.CounterVec
	backendErrors    *prometheus.CounterVec
}

// NewMetrics returns the process-wide Metrics singleton, registering
// collectors with the default Prometheus registry on first call.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = createMetrics()
	})
	return metricsInstance
}

func createMetrics() *Metrics {
	return &Metrics{
		queriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotus_queries_total",
				Help: "Total number of queries run through the gateway",
			},
			[]string{"backend", "status"},
		),
		queryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lotus_query_duration_seconds",
				Help:    "End-to-end query execution latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"backend"},
		),
		cacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotus_cache_hits_total",
				Help: "Total number of result cache hits",
			},
			[]string{"backend"},
		),
		cacheMissTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotus_cache_misses_total",
				Help: "Total number of result cache misses",
			},
			[]string{"backend"},
		),
		denylistBlocked: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotus_denylist_blocked_total",
				Help: "Total number of queries rejected by deny-list validation",
			},
			[]string{"backend", "kind"},
		),
		preflightBlocked: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotus_preflight_blocked_total",
				Help: "Total number of queries rejected by preflight authorization",
			},
			[]string{"backend"},
		),
		bindErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotus_bind_errors_total",
				Help: "Total number of variable binding failures",
			},
			[]string{"backend", "reason"},
		),
		backendErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotus_backend_errors_total",
				Help: "Total number of errors returned by the underlying database",
			},
			[]string{"backend"},
		),
	}
}

// RecordQuery records the outcome and latency of a completed query.
func (m *Metrics) RecordQuery(backend, status string, duration time.Duration) {
	m.queriesTotal.WithLabelValues(backend, status).Inc()
	m.queryDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordCacheHit records a result cache hit for backend.
func (m *Metrics) RecordCacheHit(backend string) {
	m.cacheHitsTotal.WithLabelValues(backend).Inc()
}

// RecordCacheMiss records a result cache miss for backend.
func (m *Metrics) RecordCacheMiss(backend string) {
	m.cacheMissTotal.WithLabelValues(backend).Inc()
}

// RecordDenylistBlock records a deny-list rejection. kind is the rejection's
// lotuserr.Kind string (the runner passes "read_only_violation" or
// "multiple_statements").
func (m *Metrics) RecordDenylistBlock(backend, kind string) {
	m.denylistBlocked.WithLabelValues(backend, kind).Inc()
}

// RecordPreflightBlock records a preflight authorization rejection.
func (m *Metrics) RecordPreflightBlock(backend string) {
	m.preflightBlocked.WithLabelValues(backend).Inc()
}

// RecordBindError records a variable binding failure, e.g. a missing
// variable or a value that failed type casting.
func (m *Metrics) RecordBindError(backend, reason string) {
	m.bindErrors.WithLabelValues(backend, reason).Inc()
}

// RecordBackendError records a backend failure. The runner calls it for an
// unknown backend name and for a driver error while executing the statement
// (e.g. a syntax error after preflight); timeouts and session-open failures are
// not counted here.
func (m *Metrics) RecordBackendError(backend string) {
	m.backendErrors.WithLabelValues(backend).Inc()
}

package prometheus

import (
	"strconv"
	"time"

	"github.com/sumaiwise/sumaiwise/internal/application/evaluation"
)

// AppMetrics holds every metric family the service exports.  It satisfies
// the evaluation service's telemetry contract and adds the HTTP and spec
// bundle counters the handlers and store record directly.
type AppMetrics struct {
	httpRequests    CounterVec
	httpDuration    HistogramVec
	evaluations     CounterVec
	evalDuration    HistogramVec
	cacheLookups    CounterVec
	benchmarkLevels CounterVec
	specReloads     CounterVec
	specVersion     GaugeVec
}

var _ evaluation.Metrics = (*AppMetrics)(nil)

// NewAppMetrics registers the service's metric families on the collector.
func NewAppMetrics(c Collector) *AppMetrics {
	return &AppMetrics{
		httpRequests: c.Counter("http_requests_total",
			"HTTP requests by method, route, and status code.",
			"method", "route", "status"),
		httpDuration: c.Histogram("http_request_duration_seconds",
			"HTTP request latency by method and route.",
			nil, "method", "route"),
		evaluations: c.Counter("evaluations_total",
			"Listing evaluations by outcome.",
			"outcome"),
		evalDuration: c.Histogram("evaluation_duration_seconds",
			"End-to-end evaluation latency by outcome.",
			nil, "outcome"),
		cacheLookups: c.Counter("report_cache_lookups_total",
			"Report cache lookups by result.",
			"result"),
		benchmarkLevels: c.Counter("benchmark_matches_total",
			"Benchmark lookups by matched segmentation level.",
			"level"),
		specReloads: c.Counter("spec_bundle_reloads_total",
			"Spec bundle reload attempts by result.",
			"result"),
		specVersion: c.Gauge("spec_bundle_info",
			"Currently active spec bundle version, value fixed at 1.",
			"version"),
	}
}

// ObserveEvaluation records one finished evaluation.
func (m *AppMetrics) ObserveEvaluation(outcome string, elapsed time.Duration) {
	m.evaluations.WithLabelValues(outcome).Inc()
	m.evalDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// CacheLookup records a report cache hit or miss.
func (m *AppMetrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// BenchmarkMatched records which segmentation level served a lookup.
func (m *AppMetrics) BenchmarkMatched(level string) {
	m.benchmarkLevels.WithLabelValues(level).Inc()
}

// ObserveHTTPRequest records one handled request.
func (m *AppMetrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SpecReloaded records a bundle reload attempt and, on success, marks the
// active version.
func (m *AppMetrics) SpecReloaded(version string, ok bool) {
	result := "error"
	if ok {
		result = "ok"
		m.specVersion.WithLabelValues(version).Set(1)
	}
	m.specReloads.WithLabelValues(result).Inc()
}

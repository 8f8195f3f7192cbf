package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppMetricsEvaluation(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	m.ObserveEvaluation("ok", 150*time.Millisecond)
	m.ObserveEvaluation("ok", 50*time.Millisecond)
	m.ObserveEvaluation("invalid_input", time.Millisecond)

	body := scrape(t, c)
	assert.Contains(t, body, `sumaiwise_evaluations_total{outcome="ok"} 2`)
	assert.Contains(t, body, `sumaiwise_evaluations_total{outcome="invalid_input"} 1`)
	assert.Contains(t, body, `sumaiwise_evaluation_duration_seconds_count{outcome="ok"} 2`)
}

func TestAppMetricsCacheLookups(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)

	body := scrape(t, c)
	assert.Contains(t, body, `sumaiwise_report_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, body, `sumaiwise_report_cache_lookups_total{result="miss"} 2`)
}

func TestAppMetricsBenchmarkLevels(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	m.BenchmarkMatched("muni_level")
	m.BenchmarkMatched("none")

	body := scrape(t, c)
	assert.Contains(t, body, `sumaiwise_benchmark_matches_total{level="muni_level"} 1`)
	assert.Contains(t, body, `sumaiwise_benchmark_matches_total{level="none"} 1`)
}

func TestAppMetricsHTTP(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	m.ObserveHTTPRequest("POST", "/api/v1/evaluate", 200, 30*time.Millisecond)

	body := scrape(t, c)
	assert.Contains(t, body, `sumaiwise_http_requests_total{method="POST",route="/api/v1/evaluate",status="200"} 1`)
	assert.Contains(t, body, `sumaiwise_http_request_duration_seconds_count{method="POST",route="/api/v1/evaluate"} 1`)
}

func TestAppMetricsSpecReloads(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	m.SpecReloaded("0.2.0", true)
	m.SpecReloaded("", false)

	body := scrape(t, c)
	assert.Contains(t, body, `sumaiwise_spec_bundle_reloads_total{result="ok"} 1`)
	assert.Contains(t, body, `sumaiwise_spec_bundle_reloads_total{result="error"} 1`)
	assert.Contains(t, body, `sumaiwise_spec_bundle_info{version="0.2.0"} 1`)
}

package prometheus

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "opgrader"}, logging.NewNopLogger())
	require.NoError(t, err)
	return NewAppMetrics(c), c
}

func scrape(t *testing.T, c MetricsCollector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestAppMetrics_RecordHTTPRequest(t *testing.T) {
	t.Parallel()
	m, c := newTestAppMetrics(t)

	m.RecordHTTPRequest("POST", "/api/v1/gradings", 200, 120*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/v1/gradings", 500, 80*time.Millisecond)

	body := scrape(t, c)
	assert.Contains(t, body, `opgrader_http_requests_total{method="POST",path="/api/v1/gradings",status_code="200"} 1`)
	assert.Contains(t, body, `opgrader_http_requests_total{method="POST",path="/api/v1/gradings",status_code="500"} 1`)
}

func TestAppMetrics_RecordOracleRequest(t *testing.T) {
	t.Parallel()
	m, c := newTestAppMetrics(t)

	m.RecordOracleRequest("sectioner", false, 200*time.Millisecond)
	m.RecordOracleRequest("sectioner", true, 10*time.Millisecond)

	body := scrape(t, c)
	assert.Contains(t, body, `opgrader_oracle_requests_total{outcome="ok",task="sectioner"} 1`)
	assert.Contains(t, body, `opgrader_oracle_requests_total{outcome="fallback",task="sectioner"} 1`)
	assert.Contains(t, body, `opgrader_oracle_fallbacks_total{task="sectioner"} 1`)
}

func TestAppMetrics_RecordCacheAccess(t *testing.T) {
	t.Parallel()
	m, c := newTestAppMetrics(t)

	m.RecordCacheAccess("grading_results", true)
	m.RecordCacheAccess("grading_results", true)
	m.RecordCacheAccess("grading_results", false)

	body := scrape(t, c)
	assert.Contains(t, body, `opgrader_cache_hits_total{cache="grading_results"} 2`)
	assert.Contains(t, body, `opgrader_cache_misses_total{cache="grading_results"} 1`)
}

func TestAppMetrics_SetComponentHealth(t *testing.T) {
	t.Parallel()
	m, c := newTestAppMetrics(t)

	m.SetComponentHealth("redis", true)
	m.SetComponentHealth("kafka", false)

	body := scrape(t, c)
	assert.Contains(t, body, `opgrader_health_check_status{component="redis"} 1`)
	assert.Contains(t, body, `opgrader_health_check_status{component="kafka"} 0`)
}

func TestGradingMetrics_Adapter(t *testing.T) {
	t.Parallel()
	m, c := newTestAppMetrics(t)
	adapter := NewGradingMetrics(m)

	adapter.IncGradings("success")
	adapter.IncGradings("success")
	adapter.IncGradings("failed")
	adapter.ObserveGradingDuration(1.5)

	body := scrape(t, c)
	assert.Contains(t, body, `opgrader_gradings_total{status="success"} 2`)
	assert.Contains(t, body, `opgrader_gradings_total{status="failed"} 1`)
	assert.Contains(t, body, `opgrader_grading_duration_seconds_count 1`)
}

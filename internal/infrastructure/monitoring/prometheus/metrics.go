package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the grader emits.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Grading pipeline
	GradingsTotal       CounterVec
	GradingDuration     HistogramVec
	GradingScore        HistogramVec
	DictationsTotal     CounterVec
	DictationTotalScore HistogramVec

	// Oracle extractions
	OracleRequestsTotal   CounterVec
	OracleRequestDuration HistogramVec
	OracleFallbacksTotal  CounterVec

	// Rubric store
	RubricLoadsTotal    CounterVec
	RubricCacheHits     CounterVec
	RubricCacheMisses   CounterVec
	ActiveRubricVersion GaugeVec

	// Infrastructure
	CacheHitsTotal    CounterVec
	CacheMissesTotal  CounterVec
	EventsPublished   CounterVec
	EventsConsumed    CounterVec
	DBQueryDuration   HistogramVec
	HealthCheckStatus GaugeVec
}

var (
	httpDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	gradingDurationBuckets = []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120}
	oracleDurationBuckets  = []float64{.1, .25, .5, 1, 2.5, 5, 10, 30}
	scoreBuckets           = []float64{0, .1, .2, .3, .4, .5, .6, .7, .8, .9, 1}
	dictationScoreBuckets  = []float64{0, 2, 4, 6, 8, 10, 12, 14, 16}
	dbDurationBuckets      = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers the full metric set.
func NewAppMetrics(c MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", httpDurationBuckets, "method", "path"),
		HTTPActiveRequests:  c.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method"),

		GradingsTotal:       c.RegisterCounter("gradings_total", "Completed grading runs", "status"),
		GradingDuration:     c.RegisterHistogram("grading_duration_seconds", "End-to-end grading duration", gradingDurationBuckets),
		GradingScore:        c.RegisterHistogram("grading_overall_score", "Overall grading score distribution", scoreBuckets, "rubric_id"),
		DictationsTotal:     c.RegisterCounter("dictations_total", "Completed dictation scoring runs", "status"),
		DictationTotalScore: c.RegisterHistogram("dictation_total_score", "Dictation check-total distribution", dictationScoreBuckets, "cc_pack"),

		OracleRequestsTotal:   c.RegisterCounter("oracle_requests_total", "Oracle extraction requests", "task", "outcome"),
		OracleRequestDuration: c.RegisterHistogram("oracle_request_duration_seconds", "Oracle extraction duration", oracleDurationBuckets, "task"),
		OracleFallbacksTotal:  c.RegisterCounter("oracle_fallbacks_total", "Extractions served by deterministic fallback", "task"),

		RubricLoadsTotal:    c.RegisterCounter("rubric_loads_total", "Rubric loads from the repository", "rubric_id"),
		RubricCacheHits:     c.RegisterCounter("rubric_cache_hits_total", "Rubric cache hits"),
		RubricCacheMisses:   c.RegisterCounter("rubric_cache_misses_total", "Rubric cache misses"),
		ActiveRubricVersion: c.RegisterGauge("rubric_active_version_info", "Active rubric version marker", "rubric_id", "version"),

		CacheHitsTotal:    c.RegisterCounter("cache_hits_total", "Cache hits", "cache"),
		CacheMissesTotal:  c.RegisterCounter("cache_misses_total", "Cache misses", "cache"),
		EventsPublished:   c.RegisterCounter("events_published_total", "Kafka events published", "topic", "status"),
		EventsConsumed:    c.RegisterCounter("events_consumed_total", "Kafka events consumed", "topic", "status"),
		DBQueryDuration:   c.RegisterHistogram("db_query_duration_seconds", "Database query duration", dbDurationBuckets, "operation"),
		HealthCheckStatus: c.RegisterGauge("health_check_status", "Component health (1=up, 0=down)", "component"),
	}
}

// RecordHTTPRequest records one served request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOracleRequest records one extraction attempt.
func (m *AppMetrics) RecordOracleRequest(task string, fallback bool, duration time.Duration) {
	outcome := "ok"
	if fallback {
		outcome = "fallback"
		m.OracleFallbacksTotal.WithLabelValues(task).Inc()
	}
	m.OracleRequestsTotal.WithLabelValues(task, outcome).Inc()
	m.OracleRequestDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordCacheAccess records a cache hit or miss.
func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// SetComponentHealth flags a dependency up or down.
func (m *AppMetrics) SetComponentHealth(component string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

// GradingMetrics adapts AppMetrics to the grading service's metrics port.
type GradingMetrics struct {
	app *AppMetrics
}

// NewGradingMetrics builds the grading metrics adapter.
func NewGradingMetrics(app *AppMetrics) *GradingMetrics {
	return &GradingMetrics{app: app}
}

// ObserveGradingDuration records one end-to-end grading run.
func (m *GradingMetrics) ObserveGradingDuration(seconds float64) {
	m.app.GradingDuration.WithLabelValues().Observe(seconds)
}

// IncGradings counts a finished run by status.
func (m *GradingMetrics) IncGradings(status string) {
	m.app.GradingsTotal.WithLabelValues(status).Inc()
}

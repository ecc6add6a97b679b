package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/prometheus"
)

// Metrics records per-request counters and latency into the application
// metric set.  The route template is used as the path label so /rubrics/abc
// and /rubrics/def share a series.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		m.HTTPActiveRequests.WithLabelValues(method).Inc()
		start := time.Now()

		c.Next()

		m.HTTPActiveRequests.WithLabelValues(method).Dec()
		m.RecordHTTPRequest(method, path, c.Writer.Status(), time.Since(start))
	}
}

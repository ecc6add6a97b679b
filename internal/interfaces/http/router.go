// Package http assembles the gin route tree and HTTP server for the grading
// API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/opgrader/internal/interfaces/http/handlers"
	"github.com/turtacn/opgrader/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies for the
// complete route tree.  Nil handlers leave their routes unregistered, which
// lets the worker binary reuse the health and metrics surface alone.
type RouterConfig struct {
	GradingHandler   *handlers.GradingHandler
	RubricHandler    *handlers.RubricHandler
	DictationHandler *handlers.DictationHandler
	SearchHandler    *handlers.SearchHandler
	HealthHandler    *handlers.HealthHandler

	Logger    logging.Logger
	Metrics   *prometheus.AppMetrics
	Collector prometheus.MetricsCollector

	Mode      string // gin mode: "debug" | "release" | "test"
	CORS      *middleware.CORSConfig
	RateLimit *middleware.RateLimitConfig
}

// NewRouter constructs the complete route tree: global middleware, public
// health and metrics endpoints, and the versioned API group.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	corsCfg := middleware.DefaultCORSConfig()
	if cfg.CORS != nil {
		corsCfg = *cfg.CORS
	}
	r.Use(middleware.CORS(corsCfg))

	if cfg.RateLimit != nil {
		limiter := middleware.NewTokenBucketLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)
		r.Use(middleware.RateLimit(limiter, *cfg.RateLimit))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Collector != nil {
		r.GET("/metrics", gin.WrapH(cfg.Collector.Handler()))
	}

	api := r.Group("/api/v1")
	registerGradingRoutes(api, cfg.GradingHandler)
	registerRubricRoutes(api, cfg.RubricHandler)
	registerDictationRoutes(api, cfg.DictationHandler)
	registerSearchRoutes(api, cfg.SearchHandler)

	return r
}

func registerGradingRoutes(api *gin.RouterGroup, h *handlers.GradingHandler) {
	if h == nil {
		return
	}
	api.POST("/gradings", h.Grade)
	api.GET("/gradings/:gradingID", h.GetResult)
}

func registerRubricRoutes(api *gin.RouterGroup, h *handlers.RubricHandler) {
	if h == nil {
		return
	}
	api.POST("/rubrics", h.Create)
	api.POST("/rubrics/validate", h.Validate)
	api.GET("/rubrics/:rubricID", h.Get)
	api.GET("/rubrics/:rubricID/versions", h.ListVersions)
	api.PUT("/rubrics/:rubricID/versions/:version", h.Update)
	api.PATCH("/rubrics/:rubricID/versions/:version", h.Patch)
	api.DELETE("/rubrics/:rubricID/versions/:version", h.Delete)
	api.POST("/rubrics/:rubricID/versions/:version/approve", h.Approve)
	api.POST("/rubrics/:rubricID/versions/:version/archive", h.Archive)
}

func registerDictationRoutes(api *gin.RouterGroup, h *handlers.DictationHandler) {
	if h == nil {
		return
	}
	api.POST("/dictations/score", h.Score)
}

func registerSearchRoutes(api *gin.RouterGroup, h *handlers.SearchHandler) {
	if h == nil {
		return
	}
	api.GET("/transcripts/search", h.Search)
}

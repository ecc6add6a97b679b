package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/opgrader/internal/application/grading"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

// GradingHandler serves the grading endpoints.
type GradingHandler struct {
	svc    grading.Service
	cache  grading.ArtifactCache
	logger logging.Logger
}

// NewGradingHandler builds the handler.  cache may be nil; result retrieval
// then answers 404 for every ID.
func NewGradingHandler(svc grading.Service, cache grading.ArtifactCache, logger logging.Logger) *GradingHandler {
	return &GradingHandler{svc: svc, cache: cache, logger: logger}
}

// Grade runs one grading synchronously.
//
//	POST /api/v1/gradings
func (h *GradingHandler) Grade(c *gin.Context) {
	var req grading.Request
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.svc.Grade(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetResult returns a previously computed grading result from the artifact
// cache.
//
//	GET /api/v1/gradings/:gradingID
func (h *GradingHandler) GetResult(c *gin.Context) {
	if h.cache == nil {
		respondError(c, errors.NotFound("grading result not found"))
		return
	}

	res, err := h.cache.GetResult(c.Request.Context(), c.Param("gradingID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

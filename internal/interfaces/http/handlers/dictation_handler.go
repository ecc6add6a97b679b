package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/opgrader/internal/application/dictation"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
)

// DictationHandler serves the dictation scoring endpoint.
type DictationHandler struct {
	svc    dictation.Service
	logger logging.Logger
}

// NewDictationHandler builds the handler.
func NewDictationHandler(svc dictation.Service, logger logging.Logger) *DictationHandler {
	return &DictationHandler{svc: svc, logger: logger}
}

// Score scores one dictation.  An insufficient dictation is a successful
// response with sufficient=false, not an error.
//
//	POST /api/v1/dictations/score
func (h *DictationHandler) Score(c *gin.Context) {
	var req dictation.Request
	if !bindJSON(c, &req) {
		return
	}

	report, err := h.svc.Score(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

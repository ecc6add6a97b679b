package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apprubric "github.com/turtacn/opgrader/internal/application/rubric"
	domainRubric "github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

// RubricHandler serves the rubric authoring endpoints.
type RubricHandler struct {
	svc    apprubric.Service
	logger logging.Logger
}

// NewRubricHandler builds the handler.
func NewRubricHandler(svc apprubric.Service, logger logging.Logger) *RubricHandler {
	return &RubricHandler{svc: svc, logger: logger}
}

// Create stores a new rubric version as a draft.
//
//	POST /api/v1/rubrics
func (h *RubricHandler) Create(c *gin.Context) {
	var r domainRubric.Rubric
	if !bindJSON(c, &r) {
		return
	}

	stored, err := h.svc.Create(c.Request.Context(), &r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

// Get fetches one version, or the latest approved version when the version
// query parameter is absent.
//
//	GET /api/v1/rubrics/:rubricID?version=1.2.0
func (h *RubricHandler) Get(c *gin.Context) {
	r, err := h.svc.Get(c.Request.Context(), c.Param("rubricID"), c.Query("version"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListVersions returns every stored version, oldest first.
//
//	GET /api/v1/rubrics/:rubricID/versions
func (h *RubricHandler) ListVersions(c *gin.Context) {
	versions, err := h.svc.ListVersions(c.Request.Context(), c.Param("rubricID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rubric_id": c.Param("rubricID"), "versions": versions})
}

// Update stores the submitted content as the next patch version in draft
// status; the base version is never mutated.
//
//	PUT /api/v1/rubrics/:rubricID/versions/:version
func (h *RubricHandler) Update(c *gin.Context) {
	var r domainRubric.Rubric
	if !bindJSON(c, &r) {
		return
	}

	stored, err := h.svc.Update(c.Request.Context(), c.Param("rubricID"), c.Param("version"), &r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

// Patch applies an RFC 6902 JSON patch to the base version and stores the
// result as the next patch version in draft status.
//
//	PATCH /api/v1/rubrics/:rubricID/versions/:version
func (h *RubricHandler) Patch(c *gin.Context) {
	patch, err := io.ReadAll(c.Request.Body)
	if err != nil || len(patch) == 0 {
		respondError(c, errors.InvalidParam("a JSON patch body is required"))
		return
	}

	stored, err := h.svc.PatchUpdate(c.Request.Context(), c.Param("rubricID"), c.Param("version"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

// Validate runs the QA validator without storing anything.
//
//	POST /api/v1/rubrics/validate
func (h *RubricHandler) Validate(c *gin.Context) {
	var r domainRubric.Rubric
	if !bindJSON(c, &r) {
		return
	}

	report, err := h.svc.Validate(c.Request.Context(), &r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Approve transitions a draft version to approved.
//
//	POST /api/v1/rubrics/:rubricID/versions/:version/approve
func (h *RubricHandler) Approve(c *gin.Context) {
	if err := h.svc.Approve(c.Request.Context(), c.Param("rubricID"), c.Param("version")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Archive transitions a version to archived.
//
//	POST /api/v1/rubrics/:rubricID/versions/:version/archive
func (h *RubricHandler) Archive(c *gin.Context) {
	if err := h.svc.Archive(c.Request.Context(), c.Param("rubricID"), c.Param("version")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete removes a draft or archived version.  Approved versions are
// immutable history and answer 403.
//
//	DELETE /api/v1/rubrics/:rubricID/versions/:version
func (h *RubricHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("rubricID"), c.Param("version")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/turtacn/opgrader/internal/application/grading"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

type fakeGradingService struct {
	gradeFn func(ctx context.Context, req *grading.Request) (*grading.Response, error)
}

func (f *fakeGradingService) Grade(ctx context.Context, req *grading.Request) (*grading.Response, error) {
	return f.gradeFn(ctx, req)
}

type fakeArtifactCache struct {
	getFn func(ctx context.Context, gradingID string) (*grading.Response, error)
}

func (f *fakeArtifactCache) PutResult(context.Context, *grading.Response) error { return nil }

func (f *fakeArtifactCache) GetResult(ctx context.Context, gradingID string) (*grading.Response, error) {
	return f.getFn(ctx, gradingID)
}

func newGradingRouter(svc grading.Service, cache grading.ArtifactCache) *gin.Engine {
	h := NewGradingHandler(svc, cache, logging.NewNopLogger())
	r := gin.New()
	r.POST("/gradings", h.Grade)
	r.GET("/gradings/:gradingID", h.GetResult)
	return r
}

func TestGradingHandler_Grade(t *testing.T) {
	svc := &fakeGradingService{
		gradeFn: func(_ context.Context, req *grading.Request) (*grading.Response, error) {
			assert.Equal(t, "neuro-oral", req.RubricID)
			assert.Equal(t, "t-1", req.TranscriptID)
			return &grading.Response{GradingID: "g-1", OverallScore: 0.82}, nil
		},
	}
	router := newGradingRouter(svc, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/gradings",
		strings.NewReader(`{"rubric_id":"neuro-oral","transcript_id":"t-1","raw_text":"[0:01] Student: ..."}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"g-1"`)
	assert.Contains(t, w.Body.String(), "0.82")
}

func TestGradingHandler_GradeValidationMapsTo400(t *testing.T) {
	svc := &fakeGradingService{
		gradeFn: func(_ context.Context, _ *grading.Request) (*grading.Response, error) {
			return nil, errors.InvalidParam("rubric_id is required")
		},
	}
	router := newGradingRouter(svc, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/gradings", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGradingHandler_GetResult(t *testing.T) {
	cache := &fakeArtifactCache{
		getFn: func(_ context.Context, gradingID string) (*grading.Response, error) {
			assert.Equal(t, "g-1", gradingID)
			return &grading.Response{GradingID: "g-1"}, nil
		},
	}
	router := newGradingRouter(&fakeGradingService{}, cache)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gradings/g-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGradingHandler_GetResultMiss(t *testing.T) {
	cache := &fakeArtifactCache{
		getFn: func(_ context.Context, _ string) (*grading.Response, error) {
			return nil, errors.New(errors.ErrCodeNotFound, "grading result not found")
		},
	}
	router := newGradingRouter(&fakeGradingService{}, cache)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gradings/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGradingHandler_GetResultWithoutCache(t *testing.T) {
	router := newGradingRouter(&fakeGradingService{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gradings/g-1", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

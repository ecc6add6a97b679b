package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/turtacn/opgrader/pkg/errors"
)

type fakeChecker struct {
	name string
	err  error
}

func (f *fakeChecker) Name() string                  { return f.name }
func (f *fakeChecker) Check(_ context.Context) error { return f.err }

func newHealthRouter(h *HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	return r
}

func TestHealthHandler_Liveness(t *testing.T) {
	router := newHealthRouter(NewHealthHandler("1.2.3"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"1.2.3"`)
}

func TestHealthHandler_ReadinessAllHealthy(t *testing.T) {
	router := newHealthRouter(NewHealthHandler("1.2.3",
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "redis"},
	))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres"`)
}

func TestHealthHandler_ReadinessOneUnhealthy(t *testing.T) {
	router := newHealthRouter(NewHealthHandler("1.2.3",
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "kafka", err: errors.New(errors.ErrCodeServiceUnavailable, "brokers unreachable")},
	))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "brokers unreachable")
}

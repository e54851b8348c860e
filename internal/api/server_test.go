package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	reviewapi "github.com/futig/onboarding-bot/internal/api/review"
	traineeapi "github.com/futig/onboarding-bot/internal/api/trainee"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHealthAndMetrics(t *testing.T) {
	router := SetupRouter(traineeapi.NewHandler(nil, nil), reviewapi.NewHandler(nil), zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "onboarding_http_requests_total")
}

func TestDocsServesEmbeddedSpec(t *testing.T) {
	router := SetupRouter(traineeapi.NewHandler(nil, nil), reviewapi.NewHandler(nil), zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/swagger.yaml", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/trainees/{telegram_id}/progress")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
}

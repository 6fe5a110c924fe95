package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearmind-health/booking-platform/internal/eligibility"
)

func TestHealthEndpoint(t *testing.T) {
	handler := New(&Config{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler := New(&Config{
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	handler := New(&Config{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEligibilityRouteWired(t *testing.T) {
	handler := New(&Config{
		EligibilityHandler: eligibility.NewHandler(nil, nil, nil),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/eligibility/check", nil))

	// The route exists; with no live checker configured it reports so.
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRateLimitOnAPIRoutes(t *testing.T) {
	handler := New(&Config{
		EligibilityHandler: eligibility.NewHandler(nil, nil, nil),
		RateLimitPerSecond: 0.001,
		RateLimitBurst:     1,
	})

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/eligibility/check", nil))
	require.NotEqual(t, http.StatusTooManyRequests, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/eligibility/check", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// The health check is never rate limited.
	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

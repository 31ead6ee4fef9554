package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"iam/api/health"
	"iam/api/middleware"
	"iam/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(rateLimit config.RateLimitConfig) *Router {
	cfg := &config.Config{
		App:    config.AppConfig{Name: "iam", Version: "test", Env: "test"},
		Server: config.ServerConfig{RateLimit: rateLimit},
	}
	router := NewRouter(cfg, health.NewController(cfg, nil), nil)
	router.SetupRoutes()
	return router
}

func serve(r *Router, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	w := httptest.NewRecorder()
	r.GetEngine().ServeHTTP(w, req)
	return w
}

func TestRootAndHealth(t *testing.T) {
	r := newTestRouter(config.RateLimitConfig{})

	w := serve(r, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"iam"`)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = serve(r, "/api/v1/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newTestRouter(config.RateLimitConfig{})
	w := serve(r, "/api/v1/health/live", http.Header{middleware.RequestIDHeader: {"req-42"}})
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	r := newTestRouter(config.RateLimitConfig{})
	serve(r, "/api/v1/health/live", nil)
	serve(r, "/does-not-exist", nil)

	w := serve(r, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `path="/api/v1/health/live"`), "route template label")
	assert.True(t, strings.Contains(body, `path="unmatched"`), "unmatched label")
}

func TestRateLimit(t *testing.T) {
	r := newTestRouter(config.RateLimitConfig{Enabled: true, Rate: 0.001, Burst: 2})

	assert.Equal(t, http.StatusOK, serve(r, "/api/v1/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, "/api/v1/health/live", nil).Code)
	w := serve(r, "/api/v1/health/live", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware(), middleware.RecoveryMiddleware())
	engine.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

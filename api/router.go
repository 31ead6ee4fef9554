package api

import (
	"iam/api/authz"
	"iam/api/health"
	"iam/api/middleware"
	"iam/api/response"
	"iam/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router Route configuration. Commands stay in-process; HTTP serves probes,
// metrics and read-only authorization checks.
type Router struct {
	engine           *gin.Engine
	config           *config.Config
	healthController *health.Controller
	authzController  *authz.Controller
}

// NewRouter Create route configuration
func NewRouter(cfg *config.Config, healthController *health.Controller, authzController *authz.Controller) *Router {
	// Set Gin mode based on environment
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Add middleware (order is important)
	engine.Use(middleware.RequestIDMiddleware())                      // 1. Generate request ID first
	engine.Use(middleware.RecoveryMiddleware())                       // 2. Recovery middleware
	engine.Use(middleware.LoggingMiddleware())                        // 3. Logging middleware
	engine.Use(middleware.MetricsMiddleware())                        // 4. Request metrics
	engine.Use(middleware.RateLimitMiddleware(&cfg.Server.RateLimit)) // 5. Rate limiting

	return &Router{
		engine:           engine,
		config:           cfg,
		healthController: healthController,
		authzController:  authzController,
	}
}

// SetupRoutes Set up all routes
func (r *Router) SetupRoutes() {
	apiGroup := r.engine.Group("/api/v1")
	{
		r.healthController.RegisterRoutes(apiGroup)
		if r.authzController != nil {
			r.authzController.RegisterRoutes(apiGroup)
		}
	}

	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Set root path route
	r.engine.GET("/", func(c *gin.Context) {
		response.HandleSuccess(c, gin.H{
			"name":    r.config.App.Name,
			"version": r.config.App.Version,
			"env":     r.config.App.Env,
			"health":  "/api/v1/health",
			"metrics": "/metrics",
		}, "ok")
	})
}

// GetEngine Get Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

package health

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"iam/config"

	"github.com/gin-gonic/gin"
)

const probeTimeout = 2 * time.Second

// Probe checks one dependency (event store database, snapshot redis, ...).
type Probe func(ctx context.Context) error

// Controller Health check controller
type Controller struct {
	config    *config.Config
	probes    map[string]Probe
	startTime time.Time
}

// NewController probes may be empty, e.g. for the in-memory store.
func NewController(cfg *config.Config, probes map[string]Probe) *Controller {
	if probes == nil {
		probes = map[string]Probe{}
	}
	return &Controller{
		config:    cfg,
		probes:    probes,
		startTime: time.Now(),
	}
}

// RegisterRoutes Register health check routes
func (c *Controller) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", c.Health)
	router.GET("/health/live", c.Liveness)
	router.GET("/health/ready", c.Readiness)
}

// HealthResponse Health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Timestamp string           `json:"timestamp"`
	Checks    map[string]Check `json:"checks,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check Check item
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo System information
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
}

// Health Complete health check
func (c *Controller) Health(ctx *gin.Context) {
	checks, healthy := c.runProbes(ctx.Request.Context())
	overallStatus := "healthy"
	if !healthy {
		overallStatus = "unhealthy"
	}

	resp := HealthResponse{
		Status:    overallStatus,
		Version:   c.config.App.Version,
		Uptime:    time.Since(c.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	// Only expose system info in development mode
	if c.config.IsDevelopment() {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		resp.System = &SystemInfo{
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     memStats.Alloc,
		}
	}

	statusCode := http.StatusOK
	if !healthy {
		statusCode = http.StatusServiceUnavailable
	}
	ctx.JSON(statusCode, resp)
}

// Liveness Liveness check (Kubernetes liveness probe)
func (c *Controller) Liveness(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Readiness Readiness check (Kubernetes readiness probe)
func (c *Controller) Readiness(ctx *gin.Context) {
	checks, healthy := c.runProbes(ctx.Request.Context())
	if !healthy {
		var failed []string
		for name, check := range checks {
			if check.Status != "healthy" {
				failed = append(failed, name)
			}
		}
		sort.Strings(failed)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"failed": failed,
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

func (c *Controller) runProbes(ctx context.Context) (map[string]Check, bool) {
	checks := make(map[string]Check, len(c.probes))
	healthy := true
	for name, probe := range c.probes {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		start := time.Now()
		err := probe(probeCtx)
		latency := time.Since(start)
		cancel()

		if err != nil {
			healthy = false
			checks[name] = Check{Status: "unhealthy", Message: err.Error(), Latency: latency.String()}
			continue
		}
		checks[name] = Check{Status: "healthy", Latency: latency.String()}
	}
	return checks, healthy
}

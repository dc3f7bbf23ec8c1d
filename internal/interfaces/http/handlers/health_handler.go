package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/credicefi/crediface/pkg/logger"
)

// Checker probes one dependency.
type Checker func(ctx context.Context) error

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	checks  map[string]Checker
	timeout time.Duration
	log     logger.Logger
	version string
}

// NewHealthHandler creates a new HealthHandler. Each named checker is probed on
// /health and /ready.
func NewHealthHandler(checks map[string]Checker, version string, log logger.Logger) *HealthHandler {
	if checks == nil {
		checks = map[string]Checker{}
	}
	return &HealthHandler{
		checks:  checks,
		timeout: 2 * time.Second,
		log:     log.WithComponent("health"),
		version: version,
	}
}

// HealthCheck reports the status of every dependency.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	results := h.performChecks(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	for name, result := range results {
		if result != "ok" {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			h.log.Warn(c.Request.Context(), "Health check failed",
				logger.String("check", name), logger.String("result", result))
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   "crediface",
		"version":   h.version,
		"timestamp": time.Now().UTC(),
		"checks":    results,
	})
}

// ReadinessCheck reports whether the service can serve traffic.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	h.HealthCheck(c)
}

// LivenessCheck only reports that the process is up.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// performChecks runs every checker concurrently under the handler timeout.
func (h *HealthHandler) performChecks(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var mu sync.Mutex
	results := make(map[string]string, len(names))
	var g errgroup.Group
	for _, name := range names {
		name, check := name, h.checks[name]
		g.Go(func() error {
			status := "ok"
			if err := check(ctx); err != nil {
				status = "error: " + err.Error()
			}
			mu.Lock()
			results[name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	// Checks are run by /readyz, keyed by dependency name.
	Checks  map[string]HealthCheck
	Timeout time.Duration
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	if len(h.Checks) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no_checks"})
		return
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.Checks[name](ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

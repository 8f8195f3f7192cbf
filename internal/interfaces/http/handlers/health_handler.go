package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker verifies one dependency for the readiness probe.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to the HealthChecker interface.
type CheckerFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewChecker wraps fn as a named HealthChecker.
func NewChecker(name string, fn func(ctx context.Context) error) CheckerFunc {
	return CheckerFunc{name: name, fn: fn}
}

func (c CheckerFunc) Name() string { return c.name }

func (c CheckerFunc) Check(ctx context.Context) error { return c.fn(ctx) }

const readinessTimeout = 5 * time.Second

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	version  string
	startAt  time.Time
	checkers []HealthChecker
}

// NewHealthHandler creates a HealthHandler checking the given dependencies.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		version:  version,
		startAt:  time.Now(),
		checkers: checkers,
	}
}

// LivenessResponse is the body of a liveness probe.
type LivenessResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Liveness handles GET /healthz.  It answers 200 whenever the process can
// serve requests at all; dependency state is the readiness probe's concern.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startAt).Seconds()),
	})
}

// ComponentCheck is the result of one dependency check.
type ComponentCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReadinessResponse is the body of a readiness probe.
type ReadinessResponse struct {
	Status     string           `json:"status"`
	Version    string           `json:"version"`
	Components []ComponentCheck `json:"components"`
}

// Readiness handles GET /readyz, running every registered checker.  Any
// failure makes the whole probe answer 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := ReadinessResponse{
		Status:     "ready",
		Version:    h.version,
		Components: make([]ComponentCheck, 0, len(h.checkers)),
	}

	status := http.StatusOK
	for _, checker := range h.checkers {
		check := ComponentCheck{Name: checker.Name(), Status: "ok"}
		if err := checker.Check(ctx); err != nil {
			check.Status = "failed"
			check.Error = err.Error()
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
		}
		resp.Components = append(resp.Components, check)
	}

	c.JSON(status, resp)
}

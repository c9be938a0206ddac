package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports the health of one infrastructure component.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a named probe function to the HealthChecker interface.
type CheckerFunc struct {
	ComponentName string
	Probe         func(ctx context.Context) error
}

func (f CheckerFunc) Name() string                    { return f.ComponentName }
func (f CheckerFunc) Check(ctx context.Context) error { return f.Probe(ctx) }

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
}

// NewHealthHandler creates a HealthHandler probing the given components.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
	}
}

// LivenessResponse is the body returned by the liveness probe.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the body returned by the readiness probe.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// ComponentCheck is the health of a single dependency.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Liveness handles GET /healthz. It confirms the process is running and never
// touches external dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz. It probes every registered dependency and
// returns 503 if any of them is unreachable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if len(h.checkers) == 0 {
		c.JSON(http.StatusOK, ReadinessResponse{Status: "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := h.checkAll(ctx)

	for _, comp := range components {
		if comp.Status != "healthy" {
			c.JSON(http.StatusServiceUnavailable, ReadinessResponse{
				Status:     "not_ready",
				Components: components,
			})
			return
		}
	}

	c.JSON(http.StatusOK, ReadinessResponse{
		Status:     "ready",
		Components: components,
	})
}

// checkAll probes every component concurrently.
func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	results := make(map[string]ComponentCheck, len(h.checkers))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, checker := range h.checkers {
		wg.Add(1)
		go func(ck HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := ck.Check(ctx)
			latency := time.Since(start)

			check := ComponentCheck{
				Status:  "healthy",
				Latency: latency.Truncate(time.Millisecond).String(),
			}
			if err != nil {
				check.Status = "unhealthy"
				check.Error = err.Error()
			}

			mu.Lock()
			results[ck.Name()] = check
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	return results
}

// Package health reports whether the tailed stream and its dependencies are
// usable.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// ErrDegraded marks a check failure that does not make the process unhealthy
var ErrDegraded = errors.New("degraded")

// Check represents a health check function
type Check func(ctx context.Context) error

// Checker manages health checks
type Checker struct {
	checks map[string]Check
	mu     sync.RWMutex
}

// NewChecker creates a new health checker
func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]Check),
	}
}

// RegisterCheck registers a health check
func (c *Checker) RegisterCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// CheckHealth runs all health checks concurrently
func (c *Checker) CheckHealth(ctx context.Context) map[string]CheckResult {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var wg sync.WaitGroup
	var resultsMu sync.Mutex

	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			start := time.Now()
			err := check(ctx)
			result := CheckResult{
				Status:   StatusHealthy,
				Duration: time.Since(start),
			}
			switch {
			case errors.Is(err, ErrDegraded):
				result.Status = StatusDegraded
				result.Error = err.Error()
			case err != nil:
				result.Status = StatusUnhealthy
				result.Error = err.Error()
			}

			resultsMu.Lock()
			results[name] = result
			resultsMu.Unlock()
		}()
	}

	wg.Wait()
	return results
}

// CheckResult represents the result of a health check
type CheckResult struct {
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Response is the body of the health endpoint
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Version   string                 `json:"version,omitempty"`
}

// Handler serves the health endpoints
type Handler struct {
	checker *Checker
	version string
}

// NewHandler creates a new health handler
func NewHandler(checker *Checker, version string) *Handler {
	return &Handler{
		checker: checker,
		version: version,
	}
}

// Register mounts /health, /ready and /live on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ready", h.Ready)
	mux.HandleFunc("/live", h.Live)
}

// Health reports every check. Only an unhealthy check fails the request.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := h.checker.CheckHealth(ctx)
	status := overall(results)

	statusCode := http.StatusOK
	if status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, Response{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    results,
		Version:   h.version,
	})
}

// Ready succeeds only while every check is healthy, so a reconnecting
// stream is not ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ready := overall(h.checker.CheckHealth(ctx)) == StatusHealthy

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, map[string]any{
		"ready":     ready,
		"timestamp": time.Now(),
	})
}

// Live always succeeds while the process serves requests
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

func overall(results map[string]CheckResult) Status {
	status := StatusHealthy
	for _, result := range results {
		if result.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if result.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

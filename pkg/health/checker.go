// Package health serves liveness and readiness checks for the signup server.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the health status of a service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultTimeout applies to checks registered without one.
const DefaultTimeout = 5 * time.Second

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Status     Status         `json:"status"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Report is the overall health status.
type Report struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckFunc reports a problem by returning an error. Returning a *Error
// attaches details to the result.
type CheckFunc func(ctx context.Context) error

// Check defines a single health check.
type Check struct {
	Name    string
	Run     CheckFunc
	Timeout time.Duration

	// Critical failures make the report unhealthy; others only degrade it.
	Critical bool
}

// Checker runs registered checks.
type Checker struct {
	checks  []Check
	version string
	now     func() time.Time
	mu      sync.RWMutex
}

// NewChecker creates a checker reporting version.
func NewChecker(version string) *Checker {
	return &Checker{version: version, now: time.Now}
}

// AddCheck registers a non-critical check.
func (hc *Checker) AddCheck(name string, check CheckFunc, timeout time.Duration) {
	hc.add(Check{Name: name, Run: check, Timeout: timeout})
}

// AddCriticalCheck registers a check whose failure fails readiness.
func (hc *Checker) AddCriticalCheck(name string, check CheckFunc, timeout time.Duration) {
	hc.add(Check{Name: name, Run: check, Timeout: timeout, Critical: true})
}

func (hc *Checker) add(c Check) {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks = append(hc.checks, c)
}

// Names returns the registered check names, sorted.
func (hc *Checker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for _, c := range hc.checks {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// Check runs every check concurrently and aggregates the results.
func (hc *Checker) Check(ctx context.Context) Report {
	hc.mu.RLock()
	checks := make([]Check, len(hc.checks))
	copy(checks, hc.checks)
	hc.mu.RUnlock()

	results := make([]CheckResult, len(checks))

	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			results[i] = hc.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: hc.now(),
		Version:   hc.version,
	}
	for i, c := range checks {
		r := results[i]
		report.Checks[c.Name] = r
		if r.Status == StatusHealthy {
			continue
		}
		if c.Critical {
			report.Status = StatusUnhealthy
		} else if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}
	return report
}

func (hc *Checker) run(ctx context.Context, c Check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	start := time.Now()
	err := c.Run(ctx)
	result := CheckResult{
		Status:     StatusHealthy,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		var herr *Error
		if errors.As(err, &herr) {
			result.Details = herr.Details
		}
	}
	return result
}

// LivenessHandler returns 200 while the process is serving.
func (hc *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "alive",
			"timestamp": hc.now(),
		})
	})
}

// ReadinessHandler returns 200 unless a critical check fails, then 503.
func (hc *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := hc.Check(r.Context())
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Error is a check failure with details.
type Error struct {
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

// SessionCapacityCheck fails when count reaches max live sessions.
func SessionCapacityCheck(count func() int, max int) CheckFunc {
	return func(ctx context.Context) error {
		n := count()
		if max > 0 && n >= max {
			return &Error{
				Message: "live sessions at capacity",
				Details: map[string]any{"current": n, "max": max},
			}
		}
		return nil
	}
}

// PingCheck adapts a store's Ping method.
func PingCheck(ping func(context.Context) error) CheckFunc {
	return func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		return nil
	}
}

// CircuitCheck fails while a circuit breaker reports state other than closed.
func CircuitCheck(state func() string) CheckFunc {
	return func(ctx context.Context) error {
		if s := state(); s != "closed" {
			return &Error{
				Message: "circuit " + s,
				Details: map[string]any{"state": s},
			}
		}
		return nil
	}
}

// MemoryCheck fails when the Go heap exceeds maxBytes.
func MemoryCheck(maxBytes uint64) CheckFunc {
	return func(ctx context.Context) error {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		if m.HeapAlloc > maxBytes {
			return &Error{
				Message: "heap above limit",
				Details: map[string]any{"heap_alloc": m.HeapAlloc, "max": maxBytes},
			}
		}
		return nil
	}
}

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func ok(ctx context.Context) error { return nil }

func TestCheck_AllPass(t *testing.T) {
	hc := NewChecker("1.0.0")
	hc.AddCheck("ping", ok, time.Second)
	hc.AddCriticalCheck("database", ok, time.Second)

	report := hc.Check(context.Background())

	if report.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Errorf("Expected 2 checks, got %d", len(report.Checks))
	}
	for name, result := range report.Checks {
		if result.Status != StatusHealthy || result.Error != "" {
			t.Errorf("Check %s = %+v", name, result)
		}
	}
	if report.Version != "1.0.0" {
		t.Errorf("Expected version 1.0.0, got %s", report.Version)
	}
}

func TestCheck_NonCriticalFailureDegrades(t *testing.T) {
	hc := NewChecker("")
	hc.AddCheck("passing", ok, time.Second)
	hc.AddCheck("failing", func(ctx context.Context) error {
		return errors.New("breaker open")
	}, time.Second)

	report := hc.Check(context.Background())

	if report.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", report.Status)
	}
	if report.Checks["failing"].Error != "breaker open" {
		t.Errorf("failing = %+v", report.Checks["failing"])
	}
}

func TestCheck_CriticalFailure(t *testing.T) {
	hc := NewChecker("")
	hc.AddCheck("sessions", ok, time.Second)
	hc.AddCriticalCheck("account_store", func(ctx context.Context) error {
		return errors.New("connection refused")
	}, time.Second)

	if report := hc.Check(context.Background()); report.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", report.Status)
	}
}

func TestCheck_Timeout(t *testing.T) {
	hc := NewChecker("")
	hc.AddCriticalCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 20*time.Millisecond)

	start := time.Now()
	report := hc.Check(context.Background())

	if time.Since(start) > time.Second {
		t.Error("check did not honor its timeout")
	}
	if report.Checks["slow"].Status != StatusUnhealthy {
		t.Errorf("slow = %+v", report.Checks["slow"])
	}
}

func TestCheck_ErrorDetails(t *testing.T) {
	hc := NewChecker("")
	hc.AddCheck("sessions", SessionCapacityCheck(func() int { return 10 }, 10), time.Second)

	result := hc.Check(context.Background()).Checks["sessions"]
	if result.Details["current"] != 10 || result.Details["max"] != 10 {
		t.Errorf("details = %v", result.Details)
	}
}

func TestLivenessHandler(t *testing.T) {
	hc := NewChecker("")
	w := httptest.NewRecorder()
	hc.LivenessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "alive" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		check    CheckFunc
		critical bool
		want     int
	}{
		{"healthy", ok, true, http.StatusOK},
		{"degraded still ready", func(context.Context) error { return errors.New("x") }, false, http.StatusOK},
		{"critical failure", func(context.Context) error { return errors.New("x") }, true, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewChecker("")
			if tt.critical {
				hc.AddCriticalCheck("c", tt.check, time.Second)
			} else {
				hc.AddCheck("c", tt.check, time.Second)
			}

			w := httptest.NewRecorder()
			hc.ReadinessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			var report Report
			if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
				t.Fatal(err)
			}
			if _, found := report.Checks["c"]; !found {
				t.Error("report missing check")
			}
		})
	}
}

func TestSessionCapacityCheck(t *testing.T) {
	count := 5
	check := SessionCapacityCheck(func() int { return count }, 10)

	if err := check(context.Background()); err != nil {
		t.Errorf("under capacity: %v", err)
	}
	count = 10
	var herr *Error
	if err := check(context.Background()); !errors.As(err, &herr) {
		t.Errorf("at capacity: %v", err)
	}
	if err := SessionCapacityCheck(func() int { return 1e6 }, 0)(context.Background()); err != nil {
		t.Errorf("zero max means unlimited: %v", err)
	}
}

func TestPingAndCircuitChecks(t *testing.T) {
	down := errors.New("down")
	if err := PingCheck(func(context.Context) error { return down })(context.Background()); !errors.Is(err, down) {
		t.Errorf("PingCheck() = %v", err)
	}
	if err := CircuitCheck(func() string { return "closed" })(context.Background()); err != nil {
		t.Errorf("closed circuit: %v", err)
	}
	if err := CircuitCheck(func() string { return "open" })(context.Background()); err == nil {
		t.Error("open circuit should fail")
	}
}

func TestMemoryCheck(t *testing.T) {
	if err := MemoryCheck(1 << 40)(context.Background()); err != nil {
		t.Errorf("generous limit: %v", err)
	}
	if err := MemoryCheck(1)(context.Background()); err == nil {
		t.Error("1 byte limit should fail")
	}
}

func TestNames(t *testing.T) {
	hc := NewChecker("")
	hc.AddCheck("b", ok, 0)
	hc.AddCheck("a", ok, 0)
	if got := hc.Names(); len(got) != 2 || got[0] != "a" {
		t.Errorf("Names() = %v", got)
	}
}

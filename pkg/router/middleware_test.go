package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gabrielmiguelok/agentsignup/pkg/limits"
	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
)

func TestRecovery(t *testing.T) {
	h := Recovery(logging.NopLogger{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestSecureHeaders(t *testing.T) {
	var nonce string
	h := SecureHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce = CSPNonce(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if nonce == "" {
		t.Fatal("expected nonce in context")
	}
	headers := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for k, want := range headers {
		if got := w.Header().Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS behind https proxy")
	}
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := limits.NewTokenBucket(2, 2, limits.WithClock(func() time.Time { return now }))

	h := rateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if do("10.0.0.1") != http.StatusOK || do("10.0.0.1") != http.StatusOK {
		t.Fatal("first two requests should pass")
	}
	if code := do("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", code)
	}
	if code := do("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client = %d, want 200", code)
	}

	now = now.Add(time.Second)
	if code := do("10.0.0.1"); code != http.StatusOK {
		t.Errorf("after refill = %d, want 200", code)
	}
}

func TestRateLimit_IgnoresSpoofedForwardedFor(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := limits.NewTokenBucket(1, 1, limits.WithClock(func() time.Time { return now }))
	h := rateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	allowed := 0
	for i := range 1000 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.%d.%d", i/256, i%256))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			allowed++
		}
	}

	if allowed != 1 {
		t.Errorf("allowed = %d, want 1", allowed)
	}
	if n := limiter.Len(); n != 1 {
		t.Errorf("tracked clients = %d, want 1", n)
	}
}

func TestRateLimit_TrustedProxy(t *testing.T) {
	resolver, err := limits.NewIPResolver([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := limits.NewTokenBucket(1, 1, limits.WithClock(func() time.Time { return now }))
	h := rateLimit(limiter, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.2:443"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if do("203.0.113.1") != http.StatusOK || do("203.0.113.2") != http.StatusOK {
		t.Fatal("distinct clients behind the proxy should each pass")
	}
	if code := do("203.0.113.1"); code != http.StatusTooManyRequests {
		t.Errorf("repeat client = %d, want 429", code)
	}
}

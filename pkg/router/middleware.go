package router

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/gabrielmiguelok/agentsignup/pkg/limits"
	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
)

// Middleware is a function that wraps an HTTP handler.
type Middleware = func(http.Handler) http.Handler

// Recovery turns handler panics into 500 responses and logs the stack.
func Recovery(logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic serving request",
						logging.String("path", r.URL.Path),
						logging.String("panic", fmt.Sprint(rec)),
						logging.String("stack", string(debug.Stack())),
					)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// SecureHeadersConfig configures security headers.
type SecureHeadersConfig struct {
	FrameOptions      string
	ReferrerPolicy    string
	PermissionsPolicy string

	// HSTSMaxAge enables Strict-Transport-Security on HTTPS requests when
	// positive.
	HSTSMaxAge int

	// ContentSecurityPolicy overrides the generated nonce-based policy.
	ContentSecurityPolicy string
}

// DefaultSecureHeadersConfig returns secure default configuration.
func DefaultSecureHeadersConfig() SecureHeadersConfig {
	return SecureHeadersConfig{
		FrameOptions:      "DENY",
		ReferrerPolicy:    "strict-origin-when-cross-origin",
		PermissionsPolicy: "geolocation=(), microphone=(), camera=()",
		HSTSMaxAge:        31536000,
	}
}

type cspNonceKey struct{}

// CSPNonce returns the per-request nonce placed by SecureHeaders.
func CSPNonce(ctx context.Context) string {
	nonce, _ := ctx.Value(cspNonceKey{}).(string)
	return nonce
}

func generateNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.StdEncoding.EncodeToString(b)
}

// SecureHeaders adds the default security headers.
func SecureHeaders() Middleware {
	return SecureHeadersWithConfig(DefaultSecureHeadersConfig())
}

// SecureHeadersWithConfig creates middleware with custom config.
func SecureHeadersWithConfig(config SecureHeadersConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if config.FrameOptions != "" {
				h.Set("X-Frame-Options", config.FrameOptions)
			}
			h.Set("X-Content-Type-Options", "nosniff")
			if config.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", config.ReferrerPolicy)
			}
			if config.PermissionsPolicy != "" {
				h.Set("Permissions-Policy", config.PermissionsPolicy)
			}
			if config.HSTSMaxAge > 0 && (r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https") {
				h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(config.HSTSMaxAge)+"; includeSubDomains")
			}

			nonce := generateNonce()
			csp := config.ContentSecurityPolicy
			if csp == "" {
				csp = "default-src 'self'; " +
					"script-src 'self' 'nonce-" + nonce + "'; " +
					"style-src 'self' 'nonce-" + nonce + "'; " +
					"img-src 'self' data:; " +
					"connect-src 'self' ws: wss:; " +
					"frame-ancestors 'none'; " +
					"base-uri 'self'; " +
					"form-action 'self'"
			}
			h.Set("Content-Security-Policy", csp)

			ctx := context.WithValue(r.Context(), cspNonceKey{}, nonce)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit allows each client requestsPerSecond requests per second, keyed
// by the address resolver returns. A nil resolver uses the direct peer
// address. State is per process.
func RateLimit(requestsPerSecond int, resolver *limits.IPResolver) Middleware {
	return rateLimit(limits.NewTokenBucket(float64(requestsPerSecond), requestsPerSecond), resolver)
}

func rateLimit(limiter *limits.TokenBucket, resolver *limits.IPResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(resolver.ClientIP(r)) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

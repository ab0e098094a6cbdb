// Package transport carries protocol frames between the browser and the
// session loop over a WebSocket.
package transport

import (
	"errors"
	"net/url"
	"time"
)

// Common transport errors.
var (
	ErrNotConnected     = errors.New("transport not connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendTimeout      = errors.New("send timeout")
	ErrOriginNotAllowed = errors.New("origin not allowed")
)

// Config holds transport tuning.
type Config struct {
	// ReadTimeout bounds the wait for the next client frame. The client
	// heartbeat must arrive more often than this.
	ReadTimeout time.Duration

	// WriteTimeout bounds a single frame write and a blocked Send.
	WriteTimeout time.Duration

	// PingInterval is how often to send protocol-level pings.
	PingInterval time.Duration

	// MaxMessageSize is the maximum inbound frame size in bytes.
	MaxMessageSize int64

	SendBufferSize    int
	ReceiveBufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		MaxMessageSize:    64 * 1024,
		SendBufferSize:    64,
		ReceiveBufferSize: 64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = d.SendBufferSize
	}
	if c.ReceiveBufferSize <= 0 {
		c.ReceiveBufferSize = d.ReceiveBufferSize
	}
	return c
}

// OriginPolicy decides which cross-origin pages may open a connection.
type OriginPolicy struct {
	// AllowedOrigins lists extra origins. "*" allows any. Empty means
	// same-origin only.
	AllowedOrigins []string

	// InsecureDevMode disables origin validation. Never enable in production.
	InsecureDevMode bool
}

// Allowed checks origin against the policy for a request to requestHost.
func (p OriginPolicy) Allowed(origin, requestHost string) bool {
	if p.InsecureDevMode {
		return true
	}

	// No Origin header: not a browser cross-site request.
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return false
	}

	if originURL.Host == requestHost {
		return true
	}

	for _, allowed := range p.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
		if allowedURL, err := url.Parse(allowed); err == nil && allowedURL.Host == originURL.Host {
			return true
		}
	}
	return false
}

// patterns converts the allow list into host patterns for websocket.Accept.
func (p OriginPolicy) patterns() (patterns []string, skipVerify bool) {
	if p.InsecureDevMode {
		return nil, true
	}
	for _, allowed := range p.AllowedOrigins {
		if allowed == "*" {
			return nil, true
		}
		if u, err := url.Parse(allowed); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		} else {
			patterns = append(patterns, allowed)
		}
	}
	return patterns, false
}

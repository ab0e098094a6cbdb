package core

import (
	"time"
)

// TimeoutConfig bounds the time spent in component callbacks and on the wire.
type TimeoutConfig struct {
	// ComponentMount is the timeout for Mount calls.
	ComponentMount time.Duration

	// ComponentEvent is the timeout for HandleEvent and HandleInfo calls.
	ComponentEvent time.Duration

	// WebSocketWrite is the write timeout for WebSocket frames.
	WebSocketWrite time.Duration

	// SessionIdle closes sessions with no client activity for this long.
	SessionIdle time.Duration

	// GracefulShutdown is how long shutdown waits for sessions to drain.
	GracefulShutdown time.Duration
}

// DefaultTimeoutConfig returns the server defaults.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		ComponentMount:   5 * time.Second,
		ComponentEvent:   3 * time.Second,
		WebSocketWrite:   10 * time.Second,
		SessionIdle:      30 * time.Minute,
		GracefulShutdown: 15 * time.Second,
	}
}

// Validate checks that every timeout is positive.
func (c TimeoutConfig) Validate() error {
	if c.ComponentMount <= 0 || c.ComponentEvent <= 0 {
		return configError("component timeouts must be positive")
	}
	if c.WebSocketWrite <= 0 {
		return configError("websocket write timeout must be positive")
	}
	if c.SessionIdle <= 0 || c.GracefulShutdown <= 0 {
		return configError("session timeouts must be positive")
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }

// Package limits bounds what a single client may consume: live sessions,
// request rate, and the address those limits are keyed by.
package limits

import (
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultSessionsPerIP is used when a non-positive limit is given.
const DefaultSessionsPerIP = 20

// ErrLimitExceeded is returned when a client already holds its share of sessions.
var ErrLimitExceeded = errors.New("limits: too many sessions for client")

// SessionLimiter limits concurrent live sessions per client address.
type SessionLimiter struct {
	maxPerIP int

	mu       sync.Mutex
	sessions map[string]int

	blocked atomic.Int64
	allowed atomic.Int64
}

// NewSessionLimiter creates a limiter allowing maxPerIP sessions per address.
func NewSessionLimiter(maxPerIP int) *SessionLimiter {
	if maxPerIP <= 0 {
		maxPerIP = DefaultSessionsPerIP
	}
	return &SessionLimiter{
		maxPerIP: maxPerIP,
		sessions: make(map[string]int),
	}
}

// Acquire reserves a session slot for ip. Every successful Acquire must be
// paired with a Release.
func (l *SessionLimiter) Acquire(ip string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sessions[ip] >= l.maxPerIP {
		l.blocked.Add(1)
		return ErrLimitExceeded
	}
	l.sessions[ip]++
	l.allowed.Add(1)
	return nil
}

// Release frees a slot previously reserved for ip.
func (l *SessionLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.sessions[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(l.sessions, ip)
		return
	}
	l.sessions[ip] = n - 1
}

// Count returns the sessions currently held by ip.
func (l *SessionLimiter) Count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions[ip]
}

// Clients returns how many distinct addresses hold at least one session.
func (l *SessionLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// Blocked returns the number of rejected Acquire calls.
func (l *SessionLimiter) Blocked() int64 { return l.blocked.Load() }

// Allowed returns the number of successful Acquire calls.
func (l *SessionLimiter) Allowed() int64 { return l.allowed.Load() }

// MaxPerIP returns the configured limit.
func (l *SessionLimiter) MaxPerIP() int { return l.maxPerIP }

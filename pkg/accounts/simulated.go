package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

// DefaultSimulatedDelay is how long Simulated waits before resolving.
const DefaultSimulatedDelay = 2 * time.Second

// Simulated resolves every request after a fixed delay without storing
// anything.
type Simulated struct {
	delay time.Duration
	fail  error
	clock func() time.Time
}

// SimulatedOption configures a Simulated creator.
type SimulatedOption func(*Simulated)

// WithDelay sets the resolve delay. Zero resolves immediately.
func WithDelay(d time.Duration) SimulatedOption {
	return func(s *Simulated) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// FailWith makes every request fail with err after the delay.
func FailWith(err error) SimulatedOption {
	return func(s *Simulated) {
		s.fail = err
	}
}

// WithSimulatedClock sets the clock used for receipt timestamps.
func WithSimulatedClock(clock func() time.Time) SimulatedOption {
	return func(s *Simulated) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSimulated creates a fixed-delay creator.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		delay: DefaultSimulatedDelay,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccount waits for the configured delay and resolves.
func (s *Simulated) CreateAccount(ctx context.Context, form registration.FormState) (registration.Receipt, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return registration.Receipt{}, fmt.Errorf("simulated create account: %w", ctx.Err())
		case <-timer.C:
		}
	}
	if s.fail != nil {
		return registration.Receipt{}, s.fail
	}
	return registration.Receipt{
		AccountID: uuid.New(),
		CreatedAt: s.clock(),
	}, nil
}

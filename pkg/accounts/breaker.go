package accounts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

// ErrUnavailable is returned without calling the store while the breaker is
// open.
var ErrUnavailable = errors.New("accounts: account store unavailable")

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed passes calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cool-down elapses.
	BreakerOpen
	// BreakerHalfOpen lets trial calls through after the cool-down.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures int

	// Cooldown is how long the breaker stays open before allowing a trial.
	Cooldown time.Duration

	// SuccessThreshold is the number of trial successes that close it again.
	SuccessThreshold int

	// OnStateChange is called on every transition.
	OnStateChange func(from, to BreakerState)
}

// DefaultBreakerConfig returns the defaults used by the server.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:      5,
		Cooldown:         30 * time.Second,
		SuccessThreshold: 2,
	}
}

// Breaker guards an AccountCreator so that a failing store is not hammered by
// every submit. Rejections that are the user's problem, such as
// ErrEmailTaken, do not count as failures.
type Breaker struct {
	next   registration.AccountCreator
	config BreakerConfig
	clock  func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
}

// NewBreaker wraps next.
func NewBreaker(next registration.AccountCreator, config BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if config.MaxFailures <= 0 {
		config.MaxFailures = def.MaxFailures
	}
	if config.Cooldown <= 0 {
		config.Cooldown = def.Cooldown
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = def.SuccessThreshold
	}
	return &Breaker{
		next:   next,
		config: config,
		clock:  time.Now,
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CreateAccount forwards to the wrapped creator unless the breaker is open.
func (b *Breaker) CreateAccount(ctx context.Context, form registration.FormState) (registration.Receipt, error) {
	if err := b.allow(); err != nil {
		return registration.Receipt{}, err
	}

	receipt, err := b.next.CreateAccount(ctx, form)
	switch {
	case err == nil, errors.Is(err, ErrEmailTaken):
		b.recordSuccess()
	case errors.Is(err, context.Canceled):
		// The caller went away; says nothing about the store.
	default:
		b.recordFailure()
	}
	return receipt, err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if b.clock().Sub(b.openedAt) < b.config.Cooldown {
			return ErrUnavailable
		}
		b.setState(BreakerHalfOpen)
	}
	return nil
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.setState(BreakerClosed)
		}
	default:
		b.failures = 0
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		b.open()
	case BreakerClosed:
		b.failures++
		if b.failures >= b.config.MaxFailures {
			b.open()
		}
	}
}

func (b *Breaker) open() {
	b.openedAt = b.clock()
	b.setState(BreakerOpen)
}

// setState must be called with mu held.
func (b *Breaker) setState(to BreakerState) {
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	if b.config.OnStateChange != nil && from != to {
		b.config.OnStateChange(from, to)
	}
}

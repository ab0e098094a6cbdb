package limits

import (
	"sync"
	"sync/atomic"
	"time"
)

// TokenBucket is a per-key token bucket limiter. Buckets that have been idle
// long enough to refill completely are dropped, so the key set only holds
// clients seen within one refill period.
type TokenBucket struct {
	rate  float64
	burst int
	idle  time.Duration
	now   func() time.Time

	buckets   sync.Map // key -> *bucket
	size      atomic.Int64
	lastSweep atomic.Int64
}

type bucket struct {
	mu       sync.Mutex
	tokens   float64
	lastFill time.Time
}

// TokenBucketOption configures a TokenBucket.
type TokenBucketOption func(*TokenBucket)

// WithClock sets the time source.
func WithClock(now func() time.Time) TokenBucketOption {
	return func(tb *TokenBucket) { tb.now = now }
}

// NewTokenBucket allows rate operations per second per key with bursts of up
// to burst.
func NewTokenBucket(rate float64, burst int, opts ...TokenBucketOption) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	tb := &TokenBucket{
		rate:  rate,
		burst: burst,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(tb)
	}
	tb.idle = time.Second
	if rate > 0 {
		tb.idle = max(time.Duration(float64(burst)/rate*float64(time.Second)), time.Second)
	}
	tb.lastSweep.Store(tb.now().UnixNano())
	return tb
}

// Allow reports whether one operation for key may proceed.
func (tb *TokenBucket) Allow(key string) bool {
	return tb.AllowN(key, 1)
}

// AllowN reports whether n operations for key may proceed, consuming tokens
// when they do.
func (tb *TokenBucket) AllowN(key string, n int) bool {
	now := tb.now()
	tb.maybeSweep(now)

	b := tb.getBucket(key, now)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = min(b.tokens+now.Sub(b.lastFill).Seconds()*tb.rate, float64(tb.burst))
	b.lastFill = now
	if b.tokens < float64(n) {
		return false
	}
	b.tokens -= float64(n)
	return true
}

// Len returns the number of tracked keys.
func (tb *TokenBucket) Len() int {
	return int(tb.size.Load())
}

// Sweep drops buckets idle for a full refill period and returns how many were
// removed.
func (tb *TokenBucket) Sweep() int {
	now := tb.now()
	tb.lastSweep.Store(now.UnixNano())

	removed := 0
	tb.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		if now.Sub(b.lastFill) >= tb.idle && tb.buckets.CompareAndDelete(key, value) {
			tb.size.Add(-1)
			removed++
		}
		b.mu.Unlock()
		return true
	})
	return removed
}

func (tb *TokenBucket) maybeSweep(now time.Time) {
	last := tb.lastSweep.Load()
	if now.UnixNano()-last < int64(tb.idle) {
		return
	}
	if tb.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		tb.Sweep()
	}
}

func (tb *TokenBucket) getBucket(key string, now time.Time) *bucket {
	if b, ok := tb.buckets.Load(key); ok {
		return b.(*bucket)
	}
	fresh := &bucket{tokens: float64(tb.burst), lastFill: now}
	actual, loaded := tb.buckets.LoadOrStore(key, fresh)
	if !loaded {
		tb.size.Add(1)
	}
	return actual.(*bucket)
}

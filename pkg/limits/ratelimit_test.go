package limits

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket_Allow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tb := NewTokenBucket(2, 2, WithClock(func() time.Time { return now }))

	assert.True(t, tb.Allow("a"))
	assert.True(t, tb.Allow("a"))
	assert.False(t, tb.Allow("a"))
	assert.True(t, tb.Allow("b"))

	now = now.Add(500 * time.Millisecond)
	assert.True(t, tb.Allow("a"))
	assert.False(t, tb.Allow("a"))

	assert.False(t, tb.AllowN("c", 3))
	assert.True(t, tb.AllowN("c", 2))
}

func TestTokenBucket_EvictsIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tb := NewTokenBucket(10, 10, WithClock(func() time.Time { return now }))

	for i := range 1000 {
		tb.Allow(fmt.Sprintf("198.51.100.%d", i))
	}
	assert.Equal(t, 1000, tb.Len())

	now = now.Add(2 * time.Second)
	assert.True(t, tb.Allow("203.0.113.9"))
	assert.Equal(t, 1, tb.Len())

	now = now.Add(500 * time.Millisecond)
	tb.Allow("203.0.113.10")
	assert.Zero(t, tb.Sweep())
	assert.Equal(t, 2, tb.Len())
}

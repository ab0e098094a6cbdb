package limits

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLimiter_AcquireRelease(t *testing.T) {
	l := NewSessionLimiter(2)

	require.NoError(t, l.Acquire("10.0.0.1"))
	require.NoError(t, l.Acquire("10.0.0.1"))
	assert.ErrorIs(t, l.Acquire("10.0.0.1"), ErrLimitExceeded)
	require.NoError(t, l.Acquire("10.0.0.2"))

	assert.Equal(t, 2, l.Count("10.0.0.1"))
	assert.Equal(t, 2, l.Clients())
	assert.Equal(t, int64(1), l.Blocked())
	assert.Equal(t, int64(3), l.Allowed())

	l.Release("10.0.0.1")
	require.NoError(t, l.Acquire("10.0.0.1"))

	l.Release("10.0.0.1")
	l.Release("10.0.0.1")
	l.Release("10.0.0.1")
	assert.Equal(t, 0, l.Count("10.0.0.1"))
	assert.Equal(t, 1, l.Clients())
}

func TestSessionLimiter_Default(t *testing.T) {
	l := NewSessionLimiter(0)
	assert.Equal(t, DefaultSessionsPerIP, l.MaxPerIP())
}

func TestSessionLimiter_Concurrent(t *testing.T) {
	l := NewSessionLimiter(5)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Acquire("192.168.1.1") == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, granted)
	assert.Equal(t, int64(45), l.Blocked())
}

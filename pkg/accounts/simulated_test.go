package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

func TestSimulated_Resolves(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	s := NewSimulated(WithDelay(0), WithSimulatedClock(func() time.Time { return at }))

	receipt, err := s.CreateAccount(context.Background(), registration.NewFormState())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, receipt.AccountID)
	assert.Equal(t, at, receipt.CreatedAt)
}

func TestSimulated_WaitsForDelay(t *testing.T) {
	s := NewSimulated(WithDelay(20 * time.Millisecond))

	start := time.Now()
	_, err := s.CreateAccount(context.Background(), registration.NewFormState())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSimulated_FailWith(t *testing.T) {
	boom := errors.New("upstream unavailable")
	s := NewSimulated(WithDelay(time.Millisecond), FailWith(boom))

	_, err := s.CreateAccount(context.Background(), registration.NewFormState())
	assert.ErrorIs(t, err, boom)
}

func TestSimulated_HonorsContext(t *testing.T) {
	s := NewSimulated(WithDelay(time.Minute))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CreateAccount(ctx, registration.NewFormState())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulated_DefaultDelay(t *testing.T) {
	assert.Equal(t, DefaultSimulatedDelay, NewSimulated().delay)
	assert.Equal(t, DefaultSimulatedDelay, NewSimulated(WithDelay(-time.Second)).delay)
}

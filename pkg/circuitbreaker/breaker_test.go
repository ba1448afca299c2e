package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := NewCircuitBreaker("model", Config{
		FailureThreshold: 2,
		Timeout:          30 * time.Second,
		Now:              clock.Now,
	})
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), func() error { return boom })
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(context.Background(), func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := NewCircuitBreaker("model", Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          10 * time.Second,
		Now:              clock.Now,
	})

	_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	clock.now = clock.now.Add(11 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerIgnoresNonFailures(t *testing.T) {
	ignored := errors.New("ignored")
	cb := NewCircuitBreaker("model", Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return err != nil && !errors.Is(err, ignored) },
	})

	err := cb.Execute(context.Background(), func() error { return ignored })
	require.ErrorIs(t, err, ignored)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(1), cb.Counts().TotalSuccesses)
}

func TestBreakerLimitsHalfOpenTrials(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := NewCircuitBreaker("model", Config{
		MaxRequests:      1,
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          5 * time.Second,
		Now:              clock.Now,
	})

	_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	clock.now = clock.now.Add(6 * time.Second)

	var nested error
	err := cb.Execute(context.Background(), func() error {
		nested = cb.Execute(context.Background(), func() error { return nil })
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrTooManyRequests)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerDropsOutcomesFromEarlierState(t *testing.T) {
	cb := NewCircuitBreaker("model", Config{FailureThreshold: 1})

	err := cb.Execute(context.Background(), func() error {
		_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateOpen, cb.State())
	assert.Zero(t, cb.Counts().TotalSuccesses)
}

func TestBreakerCountsPanicAsFailure(t *testing.T) {
	cb := NewCircuitBreaker("model", Config{FailureThreshold: 1})

	assert.Panics(t, func() {
		_ = cb.Execute(context.Background(), func() error { panic("driver crashed") })
	})
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerIntervalClearsClosedCounts(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := NewCircuitBreaker("neo4j", Config{
		FailureThreshold: 2,
		Interval:         10 * time.Second,
		Now:              clock.Now,
	})
	boom := errors.New("boom")

	_ = cb.Execute(context.Background(), func() error { return boom })
	clock.now = clock.now.Add(11 * time.Second)
	_ = cb.Execute(context.Background(), func() error { return boom })

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(1), cb.Counts().TotalFailures)
}

func TestBreakerSkipsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cb := NewCircuitBreaker("model", Config{})

	called := false
	err := cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, "unknown", State(7).String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}

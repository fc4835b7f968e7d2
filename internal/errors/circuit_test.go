package errors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func failing() (int, error) { return 0, errors.New("down") }

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a breaker that trips after 3 failures
	cb := NewCircuitBreaker("scoring", WithMaxFailures(3))

	// When: three calls fail
	for i := 0; i < 3; i++ {
		r := Guard(cb, failing)
		require.False(t, r.IsOk())
	}

	// Then: the circuit is open and fn is no longer called
	assert.Equal(t, StateOpen, cb.State())
	called := false
	r := Guard(cb, func() (int, error) {
		called = true
		return 1, nil
	})
	assert.False(t, called)
	assert.ErrorIs(t, r.Err(), ErrCircuitOpen)
	assert.Equal(t, -1, r.Or(-1))
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	cb := NewCircuitBreaker("scoring", WithMaxFailures(2), WithResetTimeout(time.Minute), withClock(clock.Now))

	// Given: a tripped circuit
	Guard(cb, failing)
	Guard(cb, failing)
	require.Equal(t, StateOpen, cb.State())

	// When: the reset timeout elapses
	clock.Advance(2 * time.Minute)

	// Then: one probe is allowed, and a failed probe reopens at once
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.True(t, cb.Allow())
	Guard(cb, failing)
	assert.Equal(t, StateOpen, cb.State())

	// And: a successful probe closes the circuit
	clock.Advance(2 * time.Minute)
	r := Guard(cb, func() (int, error) { return 42, nil })
	assert.Equal(t, 42, r.Or(0))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker("scoring", WithMaxFailures(3))
	Guard(cb, failing)
	Guard(cb, failing)
	Guard(cb, func() (int, error) { return 1, nil })
	Guard(cb, failing)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Failures())
}

func TestGuard_NilBreakerCallsThrough(t *testing.T) {
	r := Guard[int](nil, func() (int, error) { return 3, nil })
	assert.Equal(t, 3, r.Or(0))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

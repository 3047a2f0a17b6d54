package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestBreaker_InitialState(t *testing.T) {
	b := New("kafka")
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "kafka", b.Name())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New("kafka", WithFailureThreshold(2))

	useFallback, change := b.RecordFailure()
	assert.False(t, useFallback)
	assert.False(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)

	// already open: no second transition
	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened)
}

func TestBreaker_SuccessResetsFailureRun(t *testing.T) {
	b := New("kafka", WithFailureThreshold(2))
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.False(t, b.IsOpen())
}

func TestBreaker_CooldownTrial(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New("kafka", WithFailureThreshold(1), WithCooldown(time.Minute), WithClock(clock.now))
	b.RecordFailure()

	assert.False(t, b.Allow(), "open breaker rejects before cooldown")

	clock.t = clock.t.Add(time.Minute)
	assert.True(t, b.Allow(), "trial allowed after cooldown")
	assert.Equal(t, StateHalfOpen, b.State())

	t.Run("failed trial reopens", func(t *testing.T) {
		b.RecordFailure()
		assert.Equal(t, StateOpen, b.State())
		assert.False(t, b.Allow())
	})

	t.Run("successful trial closes", func(t *testing.T) {
		clock.t = clock.t.Add(time.Minute)
		assert.True(t, b.Allow())
		usePrimary, change := b.RecordSuccess()
		assert.True(t, usePrimary)
		assert.True(t, change.Closed)
		assert.Equal(t, StateClosed, b.State())
	})
}

func TestBreaker_SuccessThreshold(t *testing.T) {
	b := New("kafka", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	usePrimary, _ := b.RecordSuccess()
	assert.False(t, usePrimary)
	b.RecordFailure()
	usePrimary, _ = b.RecordSuccess()
	assert.False(t, usePrimary, "failure resets the success run")
	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
}

func TestBreaker_Reset(t *testing.T) {
	b := New("kafka", WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	assert.False(t, b.IsOpen())
}

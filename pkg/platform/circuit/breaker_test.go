package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests step past the cooldown.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(opts ...Option) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)}
	b := New("registry-cache", opts...)
	b.now = clock.now
	return b, clock
}

func TestBreakerDefaults(t *testing.T) {
	b := New("registry-cache")
	assert.Equal(t, "registry-cache", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
	assert.True(t, b.Allow())
}

func TestBreakerOpensOnConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		useFallback, change := b.RecordFailure()
		require.False(t, useFallback, "failure %d", i+1)
		require.False(t, change.Opened)
	}
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.Equal(t, "open", b.State().String())

	_, change = b.RecordFailure()
	assert.False(t, change.Opened, "already open")
}

func TestBreakerSuccessClearsFailureStreak(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(2))

	b.RecordFailure()
	usePrimary, _ := b.RecordSuccess()
	assert.True(t, usePrimary)

	_, change := b.RecordFailure()
	assert.False(t, change.Opened, "streak restarted after the success")
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	b, clock := newTestBreaker(WithFailureThreshold(1), WithSuccessThreshold(2), WithCooldown(time.Minute))

	b.RecordFailure()
	assert.False(t, b.Allow())

	clock.advance(59 * time.Second)
	assert.False(t, b.Allow())

	clock.advance(time.Second)
	assert.True(t, b.Allow(), "probe allowed once the cooldown has passed")

	b.RecordFailure()
	assert.False(t, b.Allow(), "a failed probe restarts the cooldown")

	clock.advance(time.Minute)
	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary, "one success is below the threshold")
	assert.False(t, change.Closed)

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerFailureWhileProbingResetsSuccesses(t *testing.T) {
	b, clock := newTestBreaker(WithFailureThreshold(1), WithSuccessThreshold(2), WithCooldown(time.Second))

	b.RecordFailure()
	clock.advance(time.Second)
	b.RecordSuccess()
	b.RecordFailure()

	clock.advance(time.Second)
	_, change := b.RecordSuccess()
	assert.False(t, change.Closed, "the earlier success no longer counts")
	_, change = b.RecordSuccess()
	assert.True(t, change.Closed)
}

func TestBreakerIgnoresNonPositiveOptions(t *testing.T) {
	b := New("x", WithFailureThreshold(0), WithSuccessThreshold(-1), WithCooldown(0))
	assert.Equal(t, defaultFailureThreshold, b.failureThreshold)
	assert.Equal(t, defaultSuccessThreshold, b.successThreshold)
	assert.Equal(t, defaultCooldown, b.cooldown)
}

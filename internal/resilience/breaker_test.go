package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream boom")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func failing(ctx context.Context) error { return errUpstream }
func succeeding(ctx context.Context) error { return nil }

func trip(t *testing.T, b *Breaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_ = b.Execute(context.Background(), failing)
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	clock := newFakeClock()
	b := newBreakerWithClock("eligibility", DefaultSettings(), clock.Now)

	trip(t, b, 4)
	assert.Equal(t, StateClosed, b.State(), "four failures stay closed")

	trip(t, b, 1)
	assert.Equal(t, StateOpen, b.State(), "fifth failure within the window opens")
}

func TestBreakerWindowSlides(t *testing.T) {
	clock := newFakeClock()
	b := newBreakerWithClock("eligibility", DefaultSettings(), clock.Now)

	trip(t, b, 4)
	clock.Advance(61 * time.Second)
	trip(t, b, 1)
	assert.Equal(t, StateClosed, b.State(), "old failures age out of the sliding window")
}

func TestBreakerOpenFailsFastWithoutInvoking(t *testing.T) {
	clock := newFakeClock()
	b := newBreakerWithClock("eligibility", DefaultSettings(), clock.Now)
	trip(t, b, 5)
	require.Equal(t, StateOpen, b.State())

	invoked := false
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		invoked = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, invoked, "open circuit must not invoke the wrapped call")
}

func TestBreakerHalfOpenTrialAfterTimeout(t *testing.T) {
	clock := newFakeClock()
	b := newBreakerWithClock("eligibility", DefaultSettings(), clock.Now)
	trip(t, b, 5)

	clock.Advance(31 * time.Second)
	invoked := 0
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		invoked++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, invoked)
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerClosesAfterThreeConsecutiveSuccesses(t *testing.T) {
	clock := newFakeClock()
	b := newBreakerWithClock("eligibility", DefaultSettings(), clock.Now)
	trip(t, b, 5)
	clock.Advance(31 * time.Second)

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Execute(context.Background(), succeeding))
		assert.Equal(t, StateHalfOpen, b.State())
	}
	require.NoError(t, b.Execute(context.Background(), succeeding))
	assert.Equal(t, StateClosed, b.State())

	// Failure history was cleared: a single new failure must not re-open.
	trip(t, b, 1)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := newBreakerWithClock("eligibility", DefaultSettings(), clock.Now)
	trip(t, b, 5)
	clock.Advance(31 * time.Second)

	require.NoError(t, b.Execute(context.Background(), succeeding))
	err := b.Execute(context.Background(), failing)
	require.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateOpen, b.State())

	// The open timer restarted; calls fail fast again until it elapses.
	assert.ErrorIs(t, b.Execute(context.Background(), succeeding), ErrOpen)
	clock.Advance(31 * time.Second)
	require.NoError(t, b.Execute(context.Background(), succeeding))
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerSingleHalfOpenTrial(t *testing.T) {
	clock := newFakeClock()
	b := newBreakerWithClock("eligibility", DefaultSettings(), clock.Now)
	trip(t, b, 5)
	clock.Advance(31 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// A second call while the trial is in flight fails fast.
	err := b.Execute(context.Background(), succeeding)
	assert.ErrorIs(t, err, ErrOpen)
	close(release)
}

func TestRegistryIsolatesIntegrations(t *testing.T) {
	reg := NewRegistry(DefaultSettings(), nil)

	for i := 0; i < 5; i++ {
		_ = reg.Execute(context.Background(), "eligibility", failing)
	}
	assert.Equal(t, StateOpen, reg.Get("eligibility").State())
	assert.Equal(t, StateClosed, reg.Get("scheduling").State(), "breakers are per integration name")

	err := reg.Execute(context.Background(), "scheduling", succeeding)
	assert.NoError(t, err)
}

func TestRegistryReturnsSameBreaker(t *testing.T) {
	reg := NewRegistry(DefaultSettings(), nil)
	assert.Same(t, reg.Get("eligibility"), reg.Get("eligibility"))
}

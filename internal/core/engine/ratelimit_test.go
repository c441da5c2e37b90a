package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
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

func TestWindowLimiterAdmitsUpToLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(DefaultLimit)
	limiter.Clock = clock.Now

	for i := 0; i < 10; i++ {
		require.True(t, limiter.Allow("203.0.113.5"), "request %d", i+1)
	}
	require.False(t, limiter.Allow("203.0.113.5"))
	require.False(t, limiter.Allow("203.0.113.5"))

	assert.Equal(t, 0, limiter.Remaining("203.0.113.5"))
	assert.Equal(t, clock.Now().Add(10*time.Minute), limiter.ResetAt("203.0.113.5"))
}

func TestWindowLimiterResetsAfterWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(DefaultLimit)
	limiter.Clock = clock.Now

	for i := 0; i < 10; i++ {
		require.True(t, limiter.Allow("A"))
	}
	require.False(t, limiter.Allow("A"))

	// Still inside the window at exactly the reset time.
	clock.Advance(10 * time.Minute)
	require.False(t, limiter.Allow("A"))

	clock.Advance(time.Second)
	require.True(t, limiter.Allow("A"))
	assert.Equal(t, 9, limiter.Remaining("A"))
}

func TestWindowLimiterIsolatesClients(t *testing.T) {
	limiter := NewWindowLimiter(RateLimit{RequestsPerWindow: 2, WindowDuration: time.Minute})
	limiter.Clock = newFakeClock().Now

	require.True(t, limiter.Allow("A"))
	require.True(t, limiter.Allow("A"))
	require.False(t, limiter.Allow("A"))

	require.True(t, limiter.Allow("B"))
	assert.Equal(t, 1, limiter.Remaining("B"))
}

func TestWindowLimiterEmptyIdentifierSharesUnknown(t *testing.T) {
	limiter := NewWindowLimiter(RateLimit{RequestsPerWindow: 1, WindowDuration: time.Minute})
	limiter.Clock = newFakeClock().Now

	require.True(t, limiter.Allow(""))
	require.False(t, limiter.Allow(UnknownClient))
	require.False(t, limiter.Allow("   "))
}

func TestWindowLimiterDefaultsForZeroLimit(t *testing.T) {
	limiter := NewWindowLimiter(RateLimit{})
	assert.Equal(t, DefaultLimit, limiter.Limit)
	assert.Equal(t, 10, limiter.Remaining("new"))
	assert.True(t, limiter.ResetAt("new").IsZero())
}

func TestWindowLimiterSweep(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(RateLimit{RequestsPerWindow: 5, WindowDuration: time.Minute})
	limiter.Clock = clock.Now

	require.True(t, limiter.Allow("old"))
	clock.Advance(45 * time.Second)
	require.True(t, limiter.Allow("fresh"))
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, limiter.Sweep())
	assert.Equal(t, 1, limiter.Len())
	assert.Equal(t, 4, limiter.Remaining("fresh"))
}

func TestWindowLimiterConcurrentAdmissions(t *testing.T) {
	limiter := NewWindowLimiter(RateLimit{RequestsPerWindow: 10, WindowDuration: time.Hour})

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), admitted.Load())
}

func TestWindowLimiterRunStopsWithContext(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWindowLimiter(RateLimit{RequestsPerWindow: 1, WindowDuration: time.Millisecond})
	limiter.Clock = clock.Now
	require.True(t, limiter.Allow("A"))
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		limiter.Run(ctx, 5*time.Millisecond, func(removed, remaining int) {
			select {
			case swept <- removed:
			default:
			}
		})
		close(done)
	}()

	select {
	case removed := <-swept:
		assert.Equal(t, 1, removed)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNilWindowLimiterAdmits(t *testing.T) {
	var limiter *WindowLimiter
	assert.True(t, limiter.Allow("A"))
	assert.Equal(t, 0, limiter.Sweep())
}

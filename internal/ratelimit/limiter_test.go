package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	l := New(limit, window)
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAdmitAllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		allowed, _ := l.Admit("u1")
		require.True(t, allowed, "call %d should be allowed", i+1)
	}

	allowed, retryAfter := l.Admit("u1")
	assert.False(t, allowed)
	assert.Equal(t, 60*time.Second, retryAfter)
}

func TestAdmitSixthCallDeniedWithRetryHint(t *testing.T) {
	l, now := newTestLimiter(5, time.Minute)

	// 6 rapid calls spread over 10 seconds: 1-5 allowed, 6 denied with
	// roughly 50 seconds left in the window.
	for i := 0; i < 5; i++ {
		allowed, _ := l.Admit("u1")
		require.True(t, allowed)
		*now = now.Add(2 * time.Second)
	}

	allowed, retryAfter := l.Admit("u1")
	require.False(t, allowed)
	assert.InDelta(t, 50, retryAfter.Seconds(), 1)
}

func TestAdmitResetsAfterWindowElapses(t *testing.T) {
	l, now := newTestLimiter(2, time.Minute)

	for i := 0; i < 2; i++ {
		allowed, _ := l.Admit("u1")
		require.True(t, allowed)
	}
	allowed, _ := l.Admit("u1")
	require.False(t, allowed)

	*now = now.Add(61 * time.Second)

	allowed, _ = l.Admit("u1")
	assert.True(t, allowed, "fresh window must admit again")
}

func TestAdmitKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	allowed, _ := l.Admit("u1")
	require.True(t, allowed)
	allowed, _ = l.Admit("u1")
	require.False(t, allowed)

	allowed, _ = l.Admit("u2")
	assert.True(t, allowed, "a different key has its own bucket")
}

func TestAdmitBoundaryBurstIsAccepted(t *testing.T) {
	l, now := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		allowed, _ := l.Admit("u1")
		require.True(t, allowed)
	}

	// Crossing the boundary opens a fresh budget immediately: up to
	// 2x limit within a short span is the documented fixed-window shape.
	*now = now.Add(60 * time.Second)
	for i := 0; i < 5; i++ {
		allowed, _ := l.Admit("u1")
		require.True(t, allowed)
	}
}

func TestAdmitDefaultsApplied(t *testing.T) {
	l := New(0, 0)
	assert.Equal(t, DefaultLimit, l.limit)
	assert.Equal(t, DefaultWindow, l.window)
}

func TestAdmitConcurrentCallersNeverExceedLimit(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("user-%d", n%5)
			if ok, _ := l.Admit(key); ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	// 5 keys x limit 5 = at most 25 admissions.
	assert.Equal(t, 25, allowedCount)
}

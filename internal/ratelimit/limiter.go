package ratelimit

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultLimit  = 5
	DefaultWindow = time.Minute

	// Stale buckets are swept by the cache janitor so the map does not
	// grow without bound with the number of distinct keys.
	sweepInterval = 10 * time.Minute
)

type bucket struct {
	count       int
	windowStart time.Time
}

// Limiter is a fixed-window admission counter per key. A burst of up to
// twice the limit is possible across a window boundary; that boundary
// behavior is part of the contract, not a defect.
type Limiter struct {
	limit   int
	window  time.Duration
	mu      sync.Mutex
	buckets *cache.Cache
	now     func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	// The cache TTL matches the window so the janitor only removes
	// buckets that would reset anyway; admission never relies on the TTL.
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: cache.New(window, sweepInterval),
		now:     time.Now,
	}
}

// Admit reports whether a request for key is allowed within the current
// window. When denied, retryAfter is the time until the window resets,
// rounded up to whole seconds.
func (l *Limiter) Admit(key string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if v, found := l.buckets.Get(key); found {
		b := v.(*bucket)
		elapsed := now.Sub(b.windowStart)
		if elapsed < l.window {
			if b.count >= l.limit {
				return false, roundUpSeconds(l.window - elapsed)
			}
			b.count++
			return true, 0
		}
	}

	// No bucket, or the window elapsed: start a fresh one.
	l.buckets.Set(key, &bucket{count: 1, windowStart: now}, cache.DefaultExpiration)
	return true, 0
}

func roundUpSeconds(d time.Duration) time.Duration {
	secs := (d + time.Second - 1) / time.Second
	return secs * time.Second
}

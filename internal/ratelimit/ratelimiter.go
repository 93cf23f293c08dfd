package ratelimit

import (
	"sync"
	"time"
)

// Limiter is used to enforce per-key rate limits.
type Limiter interface {
	Allow(key string) bool
}

// NoopLimiter allows all requests.
type NoopLimiter struct{}

func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

func (l *NoopLimiter) Allow(key string) bool {
	return true
}

// FixedWindowLimiter counts requests per key in discrete, non-overlapping
// windows. Entries are reset lazily when their window has elapsed; the map
// is never swept, which is acceptable for a bounded key space.
type FixedWindowLimiter struct {
	mu          sync.Mutex
	entries     map[string]*entry
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

type entry struct {
	count       int
	windowStart time.Time
}

// NewFixedWindowLimiter creates a limiter allowing maxRequests per window.
func NewFixedWindowLimiter(maxRequests int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		entries:     make(map[string]*entry),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow reports whether a request for key fits in the current window and,
// if so, consumes one slot. The read-modify-write is a single critical
// section so concurrent increments for the same key are never lost.
func (l *FixedWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{windowStart: now}
		l.entries[key] = e
	}

	if now.Sub(e.windowStart) > l.window {
		e.count = 0
		e.windowStart = now
	}

	if e.count >= l.maxRequests {
		return false
	}

	e.count++
	return true
}

// Usage returns the request count recorded for key in its current window.
func (l *FixedWindowLimiter) Usage(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return 0
	}
	if l.now().Sub(e.windowStart) > l.window {
		return 0
	}
	return e.count
}

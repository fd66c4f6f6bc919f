package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter decides whether another request for key fits the budget.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// SlidingWindowLimiter admits at most limit requests per key within any
// window of the configured size.
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	windows    map[string][]time.Time
	limit      int
	windowSize time.Duration
	now        func() time.Time
}

// NewSlidingWindowLimiter creates a limiter. Idle keys are swept until ctx
// is cancelled.
func NewSlidingWindowLimiter(ctx context.Context, limit int, windowSize time.Duration) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		windows:    make(map[string][]time.Time),
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
	go l.cleanup(ctx)
	return l
}

// Allow records a request for key and reports whether it is within the limit.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := prune(l.windows[key], now.Add(-l.windowSize))
	if len(recent) >= l.limit {
		l.windows[key] = recent
		return false
	}
	l.windows[key] = append(recent, now)
	return true
}

// Reset forgets every request recorded for key.
func (l *SlidingWindowLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

func prune(requests []time.Time, after time.Time) []time.Time {
	i := 0
	for i < len(requests) && !requests[i].After(after) {
		i++
	}
	return requests[i:]
}

func (l *SlidingWindowLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.windowSize)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			cutoff := l.now().Add(-l.windowSize)
			for key, reqs := range l.windows {
				if len(prune(reqs, cutoff)) == 0 {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

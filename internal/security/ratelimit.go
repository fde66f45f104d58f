package security

import (
	"sync"
	"time"
)

// RateLimiter enforces a sliding-window request cap per identity: at most
// maxRequests within the trailing window. Timestamps older than the window
// are pruned on every check; the new request is recorded only when admitted.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	history map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter builds a limiter with the given window and request cap.
func NewRateLimiter(window time.Duration, maxRequests int) *RateLimiter {
	return &RateLimiter{
		window:  window,
		max:     maxRequests,
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test use only.
func (l *RateLimiter) SetClock(fn func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if fn != nil {
		l.now = fn
	}
}

// Allow reports whether the identity may issue another request now.
func (l *RateLimiter) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.history[identity][:0]
	for _, t := range l.history[identity] {
		if now.Sub(t) < l.window {
			kept = append(kept, t)
		}
	}
	l.history[identity] = kept

	if len(kept) >= l.max {
		return false
	}
	l.history[identity] = append(kept, now)
	return true
}

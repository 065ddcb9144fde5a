package httpapi

import (
	"sync"
	"time"
)

// attemptLimiter throttles credential-guessing style endpoints. It keeps a
// sliding window of attempt timestamps per key and prunes idle keys so the
// map does not grow without bound.
type attemptLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	attempts map[string][]time.Time
	lastSeen map[string]time.Time
}

func newAttemptLimiter(window time.Duration, max int) *attemptLimiter {
	return &attemptLimiter{
		window:   window,
		max:      max,
		attempts: make(map[string][]time.Time),
		lastSeen: make(map[string]time.Time),
	}
}

func (l *attemptLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)

	live := l.attempts[key][:0]
	for _, t := range l.attempts[key] {
		if t.After(cutoff) {
			live = append(live, t)
		}
	}

	l.lastSeen[key] = now
	if len(live) >= l.max {
		l.attempts[key] = live
		return false
	}

	l.attempts[key] = append(live, now)

	if len(l.lastSeen) > 4096 {
		l.prune(cutoff)
	}
	return true
}

// prune drops keys with no attempt inside the window. Caller holds mu.
func (l *attemptLimiter) prune(cutoff time.Time) {
	for k, seen := range l.lastSeen {
		if !seen.After(cutoff) {
			delete(l.attempts, k)
			delete(l.lastSeen, k)
		}
	}
}

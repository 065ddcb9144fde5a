package httpapi

import (
	"strconv"
	"testing"
	"time"
)

func TestAttemptLimiterWindow(t *testing.T) {
	now := time.Date(2025, 7, 8, 9, 0, 0, 0, time.UTC)
	l := newAttemptLimiter(5*time.Minute, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("ip:1.2.3.4", now) {
			t.Fatalf("attempt %d should be allowed", i)
		}
	}
	if l.Allow("ip:1.2.3.4", now) {
		t.Fatalf("fourth attempt inside the window must be denied")
	}

	// A different key has its own budget.
	if !l.Allow("ip:5.6.7.8", now) {
		t.Fatalf("unrelated key must not be throttled")
	}

	// Old attempts fall out of the sliding window.
	if !l.Allow("ip:1.2.3.4", now.Add(5*time.Minute+time.Second)) {
		t.Fatalf("attempt after the window must be allowed")
	}
}

func TestAttemptLimiterPrunesIdleKeys(t *testing.T) {
	now := time.Date(2025, 7, 8, 9, 0, 0, 0, time.UTC)
	l := newAttemptLimiter(time.Minute, 5)

	for i := 0; i < 5000; i++ {
		l.Allow("ip:"+strconv.Itoa(i), now)
	}
	if !l.Allow("fresh-key", now.Add(2*time.Minute)) {
		t.Fatalf("fresh key must be allowed")
	}

	l.mu.Lock()
	size := len(l.attempts)
	l.mu.Unlock()
	if size > 4096 {
		t.Fatalf("idle keys were not pruned: %d entries", size)
	}
}

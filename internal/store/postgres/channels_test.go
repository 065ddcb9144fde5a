package postgres

import (
	"errors"
	"testing"
	"time"

	"noteserver/internal/domain"
)

func TestSelectChannel(t *testing.T) {
	now := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(4 * time.Minute)

	cases := []struct {
		name    string
		stamped map[int]time.Time
		count   int
		want    int
	}{
		{"bootstrap picks channel 0", map[int]time.Time{}, 3, 0},
		{"unstamped wins over a due channel", map[int]time.Time{0: past}, 3, 1},
		{"unstamped wins in index order", map[int]time.Time{0: past, 1: future}, 3, 2},
		{"earliest due channel wins", map[int]time.Time{0: past.Add(-time.Minute), 1: past, 2: future}, 3, 0},
		{"due beats index order", map[int]time.Time{0: future, 1: past, 2: future}, 3, 1},
		{"single channel due", map[int]time.Time{0: past}, 1, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := selectChannel(tc.stamped, tc.count, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("picked %d, want %d", got, tc.want)
			}
		})
	}
}

// Fresh channels are consumed in index order: with three never-stamped
// channels the first three picks return three distinct indices.
func TestSelectChannelRotatesFreshChannels(t *testing.T) {
	now := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	stamped := map[int]time.Time{}

	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		picked, err := selectChannel(stamped, 3, now)
		if err != nil {
			t.Fatalf("pick %d: %v", i, err)
		}
		if seen[picked] {
			t.Fatalf("pick %d returned already-used channel %d", i, picked)
		}
		seen[picked] = true
		stamped[picked] = now.Add(7 * time.Minute)
	}
}

func TestSelectChannelAllCoolingDown(t *testing.T) {
	now := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	stamped := map[int]time.Time{
		0: now.Add(6 * time.Minute),
		1: now.Add(2 * time.Minute),
		2: now.Add(9 * time.Minute),
	}

	_, err := selectChannel(stamped, 3, now)
	var busy *domain.ChannelBusyError
	if !errors.As(err, &busy) {
		t.Fatalf("expected ChannelBusyError, got %v", err)
	}
	// The wait reported is until the earliest channel frees up.
	if busy.RetryAfter != 2*time.Minute {
		t.Fatalf("retry after = %s, want 2m", busy.RetryAfter)
	}
}

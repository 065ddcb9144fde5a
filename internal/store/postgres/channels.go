package postgres

import (
	"context"
	"fmt"
	"time"

	"noteserver/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChannelsStore keeps one cooldown row per outbound email channel. The row
// set is the source of truth for rotation; it is never derived from account
// history, so deleting accounts cannot disturb scheduling.
type ChannelsStore struct {
	pool *pgxpool.Pool
}

func NewChannelsStore(pool *pgxpool.Pool) *ChannelsStore {
	return &ChannelsStore{pool: pool}
}

// Pick selects the channel to use for the next send and stamps its cooldown
// in the same row-locked transaction, so two concurrent dispatches cannot
// claim the same window.
//
// Selection order: a channel that has never been stamped wins first (index
// order, so a fresh deployment starts on channel 0); otherwise the channel
// with the earliest available_at. If even that one is still cooling down the
// pick fails with ChannelBusyError carrying the remaining wait.
func (s *ChannelsStore) Pick(ctx context.Context, channelCount int, now, nextAvailable time.Time) (int, error) {
	if channelCount < 1 {
		return 0, domain.ErrAllChannelsFailed
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin pick channel: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
		SELECT channel_index, available_at
		FROM email_channels
		WHERE channel_index < $1
		ORDER BY channel_index
		FOR UPDATE
	`
	rows, err := tx.Query(ctx, q, channelCount)
	if err != nil {
		return 0, fmt.Errorf("lock channels: %w", err)
	}

	stamped := make(map[int]time.Time, channelCount)
	for rows.Next() {
		var (
			idx int
			at  time.Time
		)
		if err := rows.Scan(&idx, &at); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan channel: %w", err)
		}
		stamped[idx] = at
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("read channels: %w", err)
	}

	picked, err := selectChannel(stamped, channelCount, now)
	if err != nil {
		return 0, err
	}

	const upsert = `
		INSERT INTO email_channels (channel_index, available_at)
		VALUES ($1, $2)
		ON CONFLICT (channel_index) DO UPDATE SET available_at = EXCLUDED.available_at
	`
	if _, err := tx.Exec(ctx, upsert, picked, nextAvailable); err != nil {
		return 0, fmt.Errorf("stamp channel: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit pick channel: %w", err)
	}
	return picked, nil
}

// selectChannel is the pure selection step behind Pick. A channel that has
// never been stamped wins first in index order; otherwise the channel with
// the earliest available_at, provided it is due. When even the earliest is
// still in the future the result is ChannelBusyError with the remaining wait.
func selectChannel(stamped map[int]time.Time, channelCount int, now time.Time) (int, error) {
	for i := 0; i < channelCount; i++ {
		if _, ok := stamped[i]; !ok {
			return i, nil
		}
	}

	earliest := stamped[0]
	picked := 0
	for i := 1; i < channelCount; i++ {
		if stamped[i].Before(earliest) {
			earliest = stamped[i]
			picked = i
		}
	}
	if earliest.After(now) {
		return 0, domain.NewChannelBusyError(earliest.Sub(now))
	}
	return picked, nil
}

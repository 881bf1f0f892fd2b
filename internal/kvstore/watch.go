package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scoremarket/internal/apperr"
	"scoremarket/pkg/types"
)

// WatchThenUpdate applies fn to the current snapshot of market under an
// optimistic lock (Redis WATCH/MULTI/EXEC), retrying on lock failure up to
// maxAttempts times with backoff between attempts. It returns the snapshot
// that was actually committed.
//
// This is the sole write primitive used by the trade engine's commit and
// undo loops (spec §4.3): every attempt re-reads the snapshot, so fn always
// sees the latest value even after a failed race.
func (s *Store) WatchThenUpdate(
	ctx context.Context,
	market types.MarketID,
	maxAttempts int,
	backoff time.Duration,
	fn func(types.Snapshot) (types.Snapshot, error),
) (types.Snapshot, error) {
	key := string(market)
	var committed types.Snapshot

	for attempt := 0; attempt < maxAttempts; attempt++ {
		txErr := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Result()
			if err != nil && err != redis.Nil {
				return fmt.Errorf("watch get %s: %w", market, err)
			}
			var current types.Snapshot
			if err != redis.Nil {
				if err := json.Unmarshal([]byte(raw), &current); err != nil {
					return fmt.Errorf("unmarshal watched snapshot %s: %w", market, err)
				}
			}

			next, err := fn(current)
			if err != nil {
				return err
			}

			data, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("marshal next snapshot %s: %w", market, err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			if err == nil {
				committed = next
			}
			return err
		}, key)

		if txErr == nil {
			return committed, nil
		}
		if errors.Is(txErr, redis.TxFailedErr) {
			time.Sleep(backoff)
			continue
		}
		return types.Snapshot{}, txErr
	}

	return types.Snapshot{}, apperr.New(apperr.Contention, fmt.Sprintf("watch_then_update exhausted %d attempts on %s", maxAttempts, market))
}

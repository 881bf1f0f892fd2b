// Package kvstore implements the key-value store adapter (C2): typed
// access to market snapshots, historical series, and the time log, with
// pipelining for bulk reads/writes and an optimistic-lock primitive for
// read-modify-write commits.
//
// It wraps github.com/redis/go-redis/v9 the way the teacher's exchange
// package wraps resty: one thin client struct holding the driver handle and
// a logger, every public method translated into the driver's idiom and
// wrapped with fmt.Errorf("...: %w", err) at the boundary.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"scoremarket/internal/config"
	"scoremarket/pkg/types"
)

// Store is the Redis-backed key-value store adapter.
type Store struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New connects to Redis per cfg.
func New(cfg config.RedisConfig, logger *slog.Logger) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		DB:          cfg.DB,
		Password:    cfg.Password,
		DialTimeout: cfg.DialTimeout,
	})
	return &Store{rdb: rdb, logger: logger.With("component", "kvstore")}
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Raw exposes the underlying Redis client for collaborators that need a
// driver-level handle (the undo queue shares this connection rather than
// opening a second one).
func (s *Store) Raw() *redis.Client {
	return s.rdb
}

func histKey(market types.MarketID) string { return string(market) + ":hist" }

const (
	timeKey         = "time"
	minuteKey       = "t"
	maxIntervalKey  = "max_interval"
)

// GetSnapshot returns the current snapshot for market, or (Snapshot{}, false, nil)
// if the market does not exist.
func (s *Store) GetSnapshot(ctx context.Context, market types.MarketID) (types.Snapshot, bool, error) {
	raw, err := s.rdb.Get(ctx, string(market)).Result()
	if err == redis.Nil {
		return types.Snapshot{}, false, nil
	}
	if err != nil {
		return types.Snapshot{}, false, fmt.Errorf("get snapshot %s: %w", market, err)
	}
	var snap types.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return types.Snapshot{}, false, fmt.Errorf("unmarshal snapshot %s: %w", market, err)
	}
	return snap, true, nil
}

// GetHist returns the historical series for market, or (Hist{}, false, nil)
// if no history exists.
func (s *Store) GetHist(ctx context.Context, market types.MarketID) (types.Hist, bool, error) {
	raw, err := s.rdb.Get(ctx, histKey(market)).Result()
	if err == redis.Nil {
		return types.Hist{}, false, nil
	}
	if err != nil {
		return types.Hist{}, false, fmt.Errorf("get hist %s: %w", market, err)
	}
	var hist types.Hist
	if err := json.Unmarshal([]byte(raw), &hist); err != nil {
		return types.Hist{}, false, fmt.Errorf("unmarshal hist %s: %w", market, err)
	}
	return hist, true, nil
}

// GetTime returns the singleton time log.
func (s *Store) GetTime(ctx context.Context) (types.TimeLog, error) {
	raw, err := s.rdb.Get(ctx, timeKey).Result()
	if err == redis.Nil {
		return types.TimeLog{}, nil
	}
	if err != nil {
		return types.TimeLog{}, fmt.Errorf("get time log: %w", err)
	}
	var tl types.TimeLog
	if err := json.Unmarshal([]byte(raw), &tl); err != nil {
		return types.TimeLog{}, fmt.Errorf("unmarshal time log: %w", err)
	}
	return tl, nil
}

// GetManySnapshots pipelines a read for every market, preserving input order.
// A missing market yields a nil entry rather than an error.
func (s *Store) GetManySnapshots(ctx context.Context, markets []types.MarketID) ([]*types.Snapshot, error) {
	cmds := make([]*redis.StringCmd, len(markets))
	pipe := s.rdb.Pipeline()
	for i, m := range markets {
		cmds[i] = pipe.Get(ctx, string(m))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline get snapshots: %w", err)
	}
	out := make([]*types.Snapshot, len(markets))
	for i, cmd := range cmds {
		raw, err := cmd.Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("pipeline get snapshot %s: %w", markets[i], err)
		}
		var snap types.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot %s: %w", markets[i], err)
		}
		out[i] = &snap
	}
	return out, nil
}

// GetManyHist pipelines a read of the historical series for every market.
func (s *Store) GetManyHist(ctx context.Context, markets []types.MarketID) ([]*types.Hist, error) {
	cmds := make([]*redis.StringCmd, len(markets))
	pipe := s.rdb.Pipeline()
	for i, m := range markets {
		cmds[i] = pipe.Get(ctx, histKey(m))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline get hist: %w", err)
	}
	out := make([]*types.Hist, len(markets))
	for i, cmd := range cmds {
		raw, err := cmd.Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("pipeline get hist %s: %w", markets[i], err)
		}
		var h types.Hist
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			return nil, fmt.Errorf("unmarshal hist %s: %w", markets[i], err)
		}
		out[i] = &h
	}
	return out, nil
}

// PutSnapshots pipelines an unconditional write of every (market, snapshot) pair.
func (s *Store) PutSnapshots(ctx context.Context, snapshots map[types.MarketID]types.Snapshot) error {
	pipe := s.rdb.Pipeline()
	for market, snap := range snapshots {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot %s: %w", market, err)
		}
		pipe.Set(ctx, string(market), data, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline put snapshots: %w", err)
	}
	return nil
}

// PutHists pipelines an unconditional write of every (market, hist) pair.
func (s *Store) PutHists(ctx context.Context, hists map[types.MarketID]types.Hist) error {
	pipe := s.rdb.Pipeline()
	for market, h := range hists {
		data, err := json.Marshal(h)
		if err != nil {
			return fmt.Errorf("marshal hist %s: %w", market, err)
		}
		pipe.Set(ctx, histKey(market), data, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline put hists: %w", err)
	}
	return nil
}

// PutTime writes the singleton time log. Writing the time log is always the
// last step of a snapshotter tick (spec §4.5). Readers of a history do not
// compare it against len(time[tf]); the back-price and valuation readers
// truncate only to the shorter of the inventory and b series.
func (s *Store) PutTime(ctx context.Context, tl types.TimeLog) error {
	data, err := json.Marshal(tl)
	if err != nil {
		return fmt.Errorf("marshal time log: %w", err)
	}
	if err := s.rdb.Set(ctx, timeKey, data, 0).Err(); err != nil {
		return fmt.Errorf("put time log: %w", err)
	}
	return nil
}

// Exists reports whether a snapshot exists for market.
func (s *Store) Exists(ctx context.Context, market types.MarketID) (bool, error) {
	n, err := s.rdb.Exists(ctx, string(market)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", market, err)
	}
	return n > 0, nil
}

// SetEx stores payload under key with a TTL, JSON-encoding it first.
func (s *Store) SetEx(ctx context.Context, key string, ttl time.Duration, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("setex %s: %w", key, err)
	}
	return nil
}

// GetAndDelete atomically loads and removes the payload at key, JSON-decoding
// it into dest. Returns (false, nil) if the key does not exist (already
// expired or already consumed).
func (s *Store) GetAndDelete(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.rdb.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get-and-delete %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// GetMinuteCounter returns the persisted scheduler minute counter, 0 if unset.
func (s *Store) GetMinuteCounter(ctx context.Context) (int64, error) {
	n, err := s.rdb.Get(ctx, minuteKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get minute counter: %w", err)
	}
	return n, nil
}

// IncrMinuteCounter atomically advances and returns the new minute counter.
func (s *Store) IncrMinuteCounter(ctx context.Context) (int64, error) {
	n, err := s.rdb.Incr(ctx, minuteKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incr minute counter: %w", err)
	}
	return n, nil
}

// IncrMinuteCounterBy atomically advances the persisted minute counter by
// delta and returns the new value. The snapshotter advances it by the
// length of its own tick cadence (2 minutes) rather than by 1 per tick, so
// the counter tracks elapsed wall-clock minutes since job start.
func (s *Store) IncrMinuteCounterBy(ctx context.Context, delta int64) (int64, error) {
	n, err := s.rdb.IncrBy(ctx, minuteKey, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("incrby minute counter: %w", err)
	}
	return n, nil
}

// GetMaxInterval returns the persisted M-timeframe doubling interval,
// defaulting to initial when unset.
func (s *Store) GetMaxInterval(ctx context.Context, initial int64) (int64, error) {
	n, err := s.rdb.Get(ctx, maxIntervalKey).Int64()
	if err == redis.Nil {
		return initial, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get max interval: %w", err)
	}
	return n, nil
}

// SetMaxInterval persists the M-timeframe doubling interval.
func (s *Store) SetMaxInterval(ctx context.Context, v int64) error {
	if err := s.rdb.Set(ctx, maxIntervalKey, v, 0).Err(); err != nil {
		return fmt.Errorf("set max interval: %w", err)
	}
	return nil
}

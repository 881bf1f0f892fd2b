// Package undoqueue implements the scheduled compensating-undo queue (spec
// §9 design note: "treat the undo queue as a message bus"). The trade
// engine publishes {form, fire_at}; a worker (run from the scheduler, C9)
// consumes due jobs and executes the undo. No mutable state is shared
// between publisher and consumer — everything lives in the key-value store.
package undoqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"scoremarket/pkg/types"
)

const (
	zsetKey = "undo_queue"
	hashKey = "undo_queue:jobs"
)

// Job is a scheduled compensating action.
type Job struct {
	JobID  string           `json:"jobId"`
	Form   types.PurchaseForm `json:"form"`
	FireAt int64            `json:"fireAt"`
}

// Queue is the Redis-backed delayed-work structure.
type Queue struct {
	rdb *redis.Client
}

// New wraps an existing Redis client. The undo queue shares the key-value
// store's connection rather than opening a second one.
func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Schedule publishes a job to fire at fireAt (Unix seconds), returning its
// job ID.
func (q *Queue) Schedule(ctx context.Context, form types.PurchaseForm, fireAt int64) (string, error) {
	jobID := uuid.NewString()
	job := Job{JobID: jobID, Form: form, FireAt: fireAt}
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal undo job: %w", err)
	}

	pipe := q.rdb.Pipeline()
	pipe.HSet(ctx, hashKey, jobID, data)
	pipe.ZAdd(ctx, zsetKey, redis.Z{Score: float64(fireAt), Member: jobID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("schedule undo job: %w", err)
	}
	return jobID, nil
}

// Cancel removes a scheduled job. It is idempotent: cancelling an already-
// fired or already-cancelled job is not an error.
func (q *Queue) Cancel(ctx context.Context, jobID string) error {
	pipe := q.rdb.Pipeline()
	pipe.ZRem(ctx, zsetKey, jobID)
	pipe.HDel(ctx, hashKey, jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cancel undo job %s: %w", jobID, err)
	}
	return nil
}

// PopDue atomically removes and returns every job whose fire time is <= now
// (Unix seconds).
func (q *Queue) PopDue(ctx context.Context, now int64) ([]Job, error) {
	ids, err := q.rdb.ZRangeByScore(ctx, zsetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range due undo jobs: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	payloads, err := q.rdb.HMGet(ctx, hashKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch due undo jobs: %w", err)
	}

	jobs := make([]Job, 0, len(ids))
	for i, raw := range payloads {
		if raw == nil {
			continue // already cancelled between the ZRANGE and HMGET
		}
		var job Job
		if err := json.Unmarshal([]byte(raw.(string)), &job); err != nil {
			return nil, fmt.Errorf("unmarshal undo job %s: %w", ids[i], err)
		}
		jobs = append(jobs, job)
	}

	pipe := q.rdb.Pipeline()
	pipe.ZRem(ctx, zsetKey, toAnySlice(ids)...)
	pipe.HDel(ctx, hashKey, ids...)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("remove popped undo jobs: %w", err)
	}

	return jobs, nil
}

func toAnySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

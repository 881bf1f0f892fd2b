package scheduler

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"
)

func testScheduler() *Scheduler {
	return &Scheduler{
		rng:    rand.New(rand.NewSource(1)),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRunJobTrapsPanic(t *testing.T) {
	t.Parallel()
	s := testScheduler()

	ran := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("panic escaped runJob: %v", r)
			}
		}()
		s.runJob("panicker", 0, func(ctx context.Context) {
			ran = true
			panic("boom")
		})
	}()

	if !ran {
		t.Error("expected the job function to have run before panicking")
	}
}

func TestRunJobPassesContextAndRunsToCompletion(t *testing.T) {
	t.Parallel()
	s := testScheduler()

	var gotCtx context.Context
	s.runJob("plain", 0, func(ctx context.Context) {
		gotCtx = ctx
	})

	if gotCtx == nil {
		t.Fatal("expected runJob to pass a non-nil context to fn")
	}
	if _, ok := gotCtx.Deadline(); !ok {
		t.Error("expected runJob's context to carry a deadline")
	}
}

func TestRunJobWithZeroJitterDoesNotSleep(t *testing.T) {
	t.Parallel()
	s := testScheduler()

	start := time.Now()
	s.runJob("no-jitter", 0, func(ctx context.Context) {})
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected runJob with zero jitter to return promptly, took %v", elapsed)
	}
}

func TestRunJobWithJitterSleepsWithinBound(t *testing.T) {
	t.Parallel()
	s := testScheduler()
	jitter := 20 * time.Millisecond

	start := time.Now()
	s.runJob("jittered", jitter, func(ctx context.Context) {})
	elapsed := time.Since(start)
	if elapsed > 2*jitter+50*time.Millisecond {
		t.Errorf("runJob slept %v, want within [0, 2*jitter] plus scheduling slack", elapsed)
	}
}

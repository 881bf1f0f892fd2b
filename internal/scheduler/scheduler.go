// Package scheduler implements the periodic job runner (C9): a single-
// process, single-tenant scheduler that drives the snapshotter (C5), the
// valuation jobs (C6), the trading bot (C7), and the scheduled-undo drain
// (C3) on the cadence table from spec §4.9.
//
// It follows the teacher's engine.Start goroutine-per-subsystem shape,
// swapping hand-rolled tickers for github.com/robfig/cron/v3 the way the
// rest of the pack's trading services schedule recurring jobs.
package scheduler

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"

	"scoremarket/internal/history"
	"scoremarket/internal/kvstore"
	"scoremarket/internal/tradeengine"
	"scoremarket/internal/valuation"
	"scoremarket/pkg/types"
)

// Bot is the subset of *bot.Bot the scheduler depends on.
type Bot interface {
	Tick(ctx context.Context, teamMarkets, playerMarkets []types.MarketID)
}

// Scheduler runs the fixed job table from spec §4.9.
type Scheduler struct {
	cron *cron.Cron

	kv           *kvstore.Store
	snapshotter  *history.Snapshotter
	marketJob    *valuation.MarketJob
	portfolioJob *valuation.PortfolioJob
	bot          Bot
	engine       *tradeengine.Engine

	teamMarkets   []types.MarketID
	playerMarkets []types.MarketID

	rng    *rand.Rand
	logger *slog.Logger
}

// New wires the scheduler's job collaborators. teamMarkets/playerMarkets
// is the static market universe the snapshotter and bot iterate each tick.
func New(
	kv *kvstore.Store,
	snapshotter *history.Snapshotter,
	marketJob *valuation.MarketJob,
	portfolioJob *valuation.PortfolioJob,
	bot Bot,
	engine *tradeengine.Engine,
	teamMarkets, playerMarkets []types.MarketID,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:          cron.New(cron.WithSeconds()),
		kv:            kv,
		snapshotter:   snapshotter,
		marketJob:     marketJob,
		portfolioJob:  portfolioJob,
		bot:           bot,
		engine:        engine,
		teamMarkets:   teamMarkets,
		playerMarkets: playerMarkets,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:        logger.With("component", "scheduler"),
	}
}

// Start registers every fixed job and begins the cron run-loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name   string
		spec   string
		jitter time.Duration
		run    func(ctx context.Context)
	}{
		{"snapshotter", "@every 2m", 0, s.runSnapshotter},
		{"valuation-markets", "@every 2m", 120 * time.Second, s.runMarketValuation},
		{"valuation-portfolios", "@every 2m", 120 * time.Second, s.runPortfolioValuation},
		{"bot", "@every 2m", 20 * time.Second, s.runBot},
		{"undo-drain", "@every 30s", 0, s.runUndoDrain},
	}

	for _, j := range jobs {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.runJob(j.name, j.jitter, j.run) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(jobs))
	return nil
}

// Stop halts the cron run-loop and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// runJob applies jitter, then runs fn with a panic trap so one job's
// failure never blocks the next tick (spec §4.9: "jobs MUST trap
// exceptions and continue").
func (s *Scheduler) runJob(name string, jitter time.Duration, fn func(ctx context.Context)) {
	if jitter > 0 {
		delay := time.Duration(s.rng.Int63n(int64(2*jitter))) - jitter
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "job", name, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	fn(ctx)
}

func (s *Scheduler) runSnapshotter(ctx context.Context) {
	if err := s.snapshotter.Tick(ctx, s.teamMarkets, s.playerMarkets); err != nil {
		s.logger.Error("snapshotter tick failed", "error", err)
	}
}

func (s *Scheduler) runMarketValuation(ctx context.Context) {
	all := make([]types.MarketID, 0, len(s.teamMarkets)+len(s.playerMarkets))
	all = append(all, s.teamMarkets...)
	all = append(all, s.playerMarkets...)
	for _, market := range all {
		for _, tf := range types.AllTimeframes {
			if err := s.marketJob.Rebuild(ctx, market, tf); err != nil {
				s.logger.Error("market valuation rebuild failed", "market", market, "timeframe", tf, "error", err)
			}
		}
	}
}

// runPortfolioValuation runs the portfolio job once every 60 minutes, gated
// off the persisted minute counter the same way runBot is.
func (s *Scheduler) runPortfolioValuation(ctx context.Context) {
	t, err := s.kv.GetMinuteCounter(ctx)
	if err != nil {
		s.logger.Error("read minute counter for portfolio valuation gating", "error", err)
		return
	}
	if t%60 != 0 {
		return
	}
	if err := s.portfolioJob.Run(ctx); err != nil {
		s.logger.Error("portfolio valuation failed", "error", err)
	}
}

// runBot fires the trading bot only at minute 2 of each 10-minute window
// (spec §4.9 cadence table), gated off the same persisted minute counter
// the snapshotter advances.
func (s *Scheduler) runBot(ctx context.Context) {
	t, err := s.kv.GetMinuteCounter(ctx)
	if err != nil {
		s.logger.Error("read minute counter for bot gating", "error", err)
		return
	}
	if t%10 != 2 {
		return
	}
	s.bot.Tick(ctx, s.teamMarkets, s.playerMarkets)
}

func (s *Scheduler) runUndoDrain(ctx context.Context) {
	s.engine.ProcessDueUndos(ctx)
}

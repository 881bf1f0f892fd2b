// Package history implements the history snapshotter (C5): the periodic
// job that copies each market's current snapshot into its rolling
// historical series, with per-timeframe decimation and time-log
// consistency.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scoremarket/internal/config"
	"scoremarket/internal/kvstore"
	"scoremarket/pkg/types"
)

// Snapshotter runs the 2-minute-cadence history job.
type Snapshotter struct {
	kv     *kvstore.Store
	cfg    config.HistoryConfig
	logger *slog.Logger
}

// New builds a Snapshotter.
func New(kv *kvstore.Store, cfg config.HistoryConfig, logger *slog.Logger) *Snapshotter {
	return &Snapshotter{kv: kv, cfg: cfg, logger: logger.With("component", "history")}
}

// tickAdvanceMinutes is the snapshotter's own cadence, in minutes, by which
// the persisted minute counter advances on every tick.
const tickAdvanceMinutes = 2

// ActiveTimeframes computes which timeframes are due at minute counter t,
// given the current M-timeframe doubling interval.
func ActiveTimeframes(t, maxIntervalMin int64) []types.Timeframe {
	var active []types.Timeframe
	if t%2 == 0 {
		active = append(active, types.TFHourly)
	}
	if t%60 == 0 {
		active = append(active, types.TFDaily)
	}
	if t%(60*24) == 0 {
		active = append(active, types.TFWeekly)
	}
	if t%(60*24*7) == 0 {
		active = append(active, types.TFMonthly)
	}
	if maxIntervalMin > 0 && t%maxIntervalMin == 0 {
		active = append(active, types.TFLongMonthly)
	}
	return active
}

// Tick advances the persisted minute counter, determines the active
// timeframes, and appends every market's current snapshot into its history
// for those timeframes, then updates the time log last (spec §4.5).
//
// teams and players are pre-split by variant; players may additionally be
// pre-chunked by league by the caller to bound per-tick memory — Tick
// itself processes whatever markets it is given in one pass.
func (s *Snapshotter) Tick(ctx context.Context, teams, players []types.MarketID) error {
	t, err := s.kv.IncrMinuteCounterBy(ctx, tickAdvanceMinutes)
	if err != nil {
		return fmt.Errorf("advance minute counter: %w", err)
	}

	maxInterval, err := s.kv.GetMaxInterval(ctx, int64(s.cfg.InitialMaxIntervalMin))
	if err != nil {
		return fmt.Errorf("load max interval: %w", err)
	}

	active := ActiveTimeframes(t, maxInterval)
	if len(active) == 0 {
		return nil
	}

	now := time.Now().Unix()
	doubled := false

	all := make([]types.MarketID, 0, len(teams)+len(players))
	all = append(all, teams...)
	all = append(all, players...)

	snaps, err := s.kv.GetManySnapshots(ctx, all)
	if err != nil {
		return fmt.Errorf("read current snapshots: %w", err)
	}
	hists, err := s.kv.GetManyHist(ctx, all)
	if err != nil {
		return fmt.Errorf("read current history: %w", err)
	}

	updates := make(map[types.MarketID]types.Hist, len(all))
	for i, market := range all {
		snap := snaps[i]
		if snap == nil {
			s.logger.Warn("snapshot missing for market with history entry", "market", market)
			continue
		}
		hist := hists[i]
		variant, _ := market.Variant()

		var h types.Hist
		if hist != nil {
			h = *hist
		} else if variant == types.VariantTeam {
			h = types.NewTeamHistWire()
		} else {
			h = types.NewPlayerHistWire()
		}

		for _, tf := range active {
			if variant == types.VariantTeam {
				team, _ := snap.Team()
				if h.X == nil {
					h.X = map[types.Timeframe][][]float64{}
				}
				if h.B == nil {
					h.B = map[types.Timeframe][]float64{}
				}
				var decimated bool
				if tf == types.TFLongMonthly {
					h.X[tf], decimated = appendVectorLongMonthly(h.X[tf], team.X, s.cfg.LongMonthlyCap)
					h.B[tf], _ = appendScalarLongMonthly(h.B[tf], team.B, s.cfg.LongMonthlyCap)
				} else {
					h.X[tf], decimated = appendVector(h.X[tf], team.X, s.cfg.RetentionCap)
					h.B[tf], _ = appendScalar(h.B[tf], team.B, s.cfg.RetentionCap)
				}
				if tf == types.TFLongMonthly && decimated {
					doubled = true
				}
			} else {
				player, _ := snap.Player()
				if h.N == nil {
					h.N = map[types.Timeframe][]float64{}
				}
				if h.B == nil {
					h.B = map[types.Timeframe][]float64{}
				}
				var decimated bool
				if tf == types.TFLongMonthly {
					h.N[tf], decimated = appendScalarLongMonthly(h.N[tf], player.N, s.cfg.LongMonthlyCap)
					h.B[tf], _ = appendScalarLongMonthly(h.B[tf], player.B, s.cfg.LongMonthlyCap)
				} else {
					h.N[tf], decimated = appendScalar(h.N[tf], player.N, s.cfg.RetentionCap)
					h.B[tf], _ = appendScalar(h.B[tf], player.B, s.cfg.RetentionCap)
				}
				if tf == types.TFLongMonthly && decimated {
					doubled = true
				}
			}
		}
		updates[market] = h
	}

	if err := s.kv.PutHists(ctx, updates); err != nil {
		return fmt.Errorf("write updated history: %w", err)
	}

	if err := s.updateTime(ctx, active, now); err != nil {
		return fmt.Errorf("update time log: %w", err)
	}

	if doubled {
		maxInterval *= 2
		if err := s.kv.SetMaxInterval(ctx, maxInterval); err != nil {
			return fmt.Errorf("persist doubled max interval: %w", err)
		}
	}

	return nil
}

// updateTime appends now to TimeLog[tf] for every active tf, applying the
// same retention rules (including M's doubling decimation), and writes the
// result — always the last write of a tick (spec §4.5).
func (s *Snapshotter) updateTime(ctx context.Context, active []types.Timeframe, now int64) error {
	tl, err := s.kv.GetTime(ctx)
	if err != nil {
		return err
	}

	for _, tf := range active {
		seq := tl.Get(tf)
		var next []int64
		if tf == types.TFLongMonthly {
			next, _ = appendInt64LongMonthly(seq, now, s.cfg.LongMonthlyCap)
		} else {
			next, _ = appendInt64(seq, now, s.cfg.RetentionCap)
		}
		tl.Set(tf, next)
	}

	return s.kv.PutTime(ctx, tl)
}

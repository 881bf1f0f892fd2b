// Package bot implements the trading bot (C7): the simulated-liquidity
// actor that periodically pushes prices toward target probabilities.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"scoremarket/internal/config"
	"scoremarket/internal/kvstore"
	"scoremarket/internal/marketmaker"
	"scoremarket/pkg/types"
)

// Bot runs the 10-minute-cadence trading bot.
type Bot struct {
	kv      *kvstore.Store
	beliefs *BeliefStore
	cfg     config.BotConfig
	rng     *rand.Rand
	logger  *slog.Logger
}

// New builds the trading bot.
func New(kv *kvstore.Store, cfg config.BotConfig, logger *slog.Logger) *Bot {
	return &Bot{
		kv:      kv,
		beliefs: NewBeliefStore(cfg.BeliefFile),
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger.With("component", "bot"),
	}
}

// tradeLogEntry is one line of the bot's append-only trade log.
type tradeLogEntry struct {
	Market    types.MarketID `json:"market"`
	Long      *bool          `json:"long,omitempty"`
	Quantity  any            `json:"quantity"`
	Cost      float64        `json:"cost"`
	Timestamp int64          `json:"timestamp"`
}

// Tick runs one bot cycle: for every candidate market, with probability
// cfg.SelectionProb it perturbs the belief and commits the resulting
// optimal trade directly against the key-value store (spec §4.7 — no watch
// discipline is required here by contract since the bot is assumed to be
// the only concurrent writer at this cadence).
func (b *Bot) Tick(ctx context.Context, teamMarkets, playerMarkets []types.MarketID) {
	teamBeliefs, err := b.beliefs.LoadTeamBeliefs()
	if err != nil {
		b.logger.Error("load team beliefs", "error", err)
		teamBeliefs = nil
	}
	playerBeliefs, err := b.beliefs.LoadPlayerBeliefs()
	if err != nil {
		b.logger.Error("load player beliefs", "error", err)
		playerBeliefs = nil
	}

	for _, market := range teamMarkets {
		if b.rng.Float64() >= b.cfg.SelectionProb {
			continue
		}
		m, ok := teamBeliefs[market]
		if !ok {
			continue
		}
		if err := b.tradeTeamMarket(ctx, market, m); err != nil {
			b.logger.Error("team bot trade", "market", market, "error", err)
		}
	}

	for _, market := range playerMarkets {
		if b.rng.Float64() >= b.cfg.SelectionProb {
			continue
		}
		m, ok := playerBeliefs[market]
		if !ok {
			continue
		}
		if err := b.tradePlayerMarket(ctx, market, m); err != nil {
			b.logger.Error("player bot trade", "market", market, "error", err)
		}
	}
}

func (b *Bot) tradeTeamMarket(ctx context.Context, market types.MarketID, belief []float64) error {
	snap, ok, err := b.kv.GetSnapshot(ctx, market)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if !ok {
		return nil
	}
	team, ok := snap.Team()
	if !ok {
		return nil
	}

	perturbed := perturbTeamBelief(b.rng, belief)
	q, cost, ok := optimalTeamTrade(team.X, team.B, perturbed)
	if !ok {
		return nil
	}

	newX := make([]float64, len(team.X))
	for i := range team.X {
		newX[i] = team.X[i] + q[i]
	}
	if err := b.kv.PutSnapshots(ctx, map[types.MarketID]types.Snapshot{
		market: types.NewTeamSnapshotWire(newX, team.B),
	}); err != nil {
		return fmt.Errorf("commit bot trade: %w", err)
	}

	return b.logTrade(tradeLogEntry{Market: market, Quantity: q, Cost: cost, Timestamp: time.Now().Unix()})
}

func (b *Bot) tradePlayerMarket(ctx context.Context, market types.MarketID, belief float64) error {
	snap, ok, err := b.kv.GetSnapshot(ctx, market)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if !ok {
		return nil
	}
	player, ok := snap.Player()
	if !ok {
		return nil
	}

	perturbed := perturbPlayerBelief(b.rng, belief, b.cfg.PlayerNoiseSigma)
	n, isLong, ok := optimalPlayerTrade(player.N, player.B, perturbed)
	if !ok {
		return nil
	}

	newN := player.N + n
	if err := b.kv.PutSnapshots(ctx, map[types.MarketID]types.Snapshot{
		market: types.NewPlayerSnapshotWire(newN, player.B),
	}); err != nil {
		return fmt.Errorf("commit bot trade: %w", err)
	}

	var cost float64
	if isLong {
		cost = marketmaker.PriceTradeLong(player.N, player.B, n)
	} else {
		cost = marketmaker.PriceTradeShort(player.N, player.B, -n)
	}
	long := isLong
	return b.logTrade(tradeLogEntry{Market: market, Long: &long, Quantity: n, Cost: cost, Timestamp: time.Now().Unix()})
}

func fabsN(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// logTrade appends entry to logs/trades/DD_MM_YYYY/<unix_seconds>.json (spec §6).
func (b *Bot) logTrade(entry tradeLogEntry) error {
	now := time.Now()
	dir := filepath.Join(b.cfg.TradeLogDir, now.Format("02_01_2006"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create trade log dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d.json", now.Unix()))
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal trade log entry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trade log: %w", err)
	}
	return nil
}

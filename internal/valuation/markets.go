// Package valuation implements the valuation jobs (C6): per-market
// price-history rebuild and per-portfolio current-value/returns rebuild.
package valuation

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"

	"scoremarket/internal/config"
	"scoremarket/internal/kvstore"
	"scoremarket/internal/marketmaker"
	"scoremarket/pkg/types"
)

// MarketJob rebuilds per-market price histories.
type MarketJob struct {
	kv     *kvstore.Store
	fs     *firestore.Client
	cfg    config.ValuationConfig
	logger *slog.Logger
}

// NewMarketJob builds the per-market valuation job.
func NewMarketJob(kv *kvstore.Store, fs *firestore.Client, cfg config.ValuationConfig, logger *slog.Logger) *MarketJob {
	return &MarketJob{kv: kv, fs: fs, cfg: cfg, logger: logger.With("component", "valuation-markets")}
}

// marketCollection returns the document-store collection a market's
// metadata lives in, derived from its variant.
func marketCollection(market types.MarketID) string {
	if v, ok := market.Variant(); ok && v == types.VariantPlayer {
		return "players"
	}
	return "teams"
}

// Rebuild samples market's history for tf at roughly cfg.SamplePoints
// points, appends its current snapshot, computes the back-price series over
// that sample, and emits current/returns fields as a document update.
func (j *MarketJob) Rebuild(ctx context.Context, market types.MarketID, tf types.Timeframe) error {
	snap, ok, err := j.kv.GetSnapshot(ctx, market)
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", market, err)
	}
	if !ok {
		return nil
	}
	hist, ok, err := j.kv.GetHist(ctx, market)
	if err != nil {
		return fmt.Errorf("read hist %s: %w", market, err)
	}
	if !ok {
		return nil
	}

	var priceHist []float64
	if hist.IsTeam() {
		xs, bs := strideTeam(hist.Team(), tf, j.cfg.SamplePoints)
		team, _ := snap.Team()
		xs = append(xs, team.X)
		bs = append(bs, team.B)
		priceHist = marketmaker.BackPriceTeamHistory(xs, bs)
	} else {
		ns, bs := strideScalar(hist.Player().N[tf], hist.Player().B[tf], j.cfg.SamplePoints)
		player, _ := snap.Player()
		ns = append(ns, player.N)
		bs = append(bs, player.B)
		priceHist = marketmaker.BackPricePlayerHistory(ns, bs)
	}

	if len(priceHist) == 0 {
		return nil
	}
	current := priceHist[len(priceHist)-1]
	returns := current/priceHist[0] - 1

	docRef := j.fs.Collection(marketCollection(market)).Doc(string(market))
	_, err = docRef.Update(ctx, []firestore.Update{
		{Path: fmt.Sprintf("long_price_hist.%s", tf), Value: priceHist},
		{Path: fmt.Sprintf("long_price_returns_%s", tf), Value: returns},
		{Path: "long_price_current", Value: current},
	})
	if err != nil {
		return fmt.Errorf("write price history %s: %w", market, err)
	}
	return nil
}

// strideTeam samples a team history's (x, b) series for tf at a stride
// chosen to hit approximately target points.
func strideTeam(h types.TeamHist, tf types.Timeframe, target int) ([][]float64, []float64) {
	xs := h.X[tf]
	bs := h.B[tf]
	n := len(xs)
	if len(bs) < n {
		n = len(bs)
	}
	stride := 1
	if target > 0 {
		if s := n / target; s > 1 {
			stride = s
		}
	}
	var outX [][]float64
	var outB []float64
	for i := 0; i < n; i += stride {
		outX = append(outX, xs[i])
		outB = append(outB, bs[i])
	}
	return outX, outB
}

// strideScalar samples a player history's (N, b) series for tf.
func strideScalar(ns, bs []float64, target int) ([]float64, []float64) {
	n := len(ns)
	if len(bs) < n {
		n = len(bs)
	}
	stride := 1
	if target > 0 {
		if s := n / target; s > 1 {
			stride = s
		}
	}
	var outN, outB []float64
	for i := 0; i < n; i += stride {
		outN = append(outN, ns[i])
		outB = append(outB, bs[i])
	}
	return outN, outB
}

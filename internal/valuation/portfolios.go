package valuation

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"

	"scoremarket/internal/kvstore"
	"scoremarket/internal/ledger"
	"scoremarket/internal/marketmaker"
	"scoremarket/pkg/types"
)

// initialCash is the starting balance every portfolio is created with
// (spec §4.4), used as c0 in the current/historical value reconstruction.
const initialCash = 500.0

// PortfolioJob rebuilds current_value and returns_{d,w,m,M} for every
// portfolio document on a 60-minute cadence.
type PortfolioJob struct {
	kv     *kvstore.Store
	fs     *firestore.Client
	ledger *ledger.Ledger
	cfg    Config
}

// Config groups the batching parameters the portfolio job needs from
// config.ValuationConfig.
type Config struct {
	BatchSize  int
	WorkerPool int
}

// NewPortfolioJob builds the per-portfolio valuation job.
func NewPortfolioJob(kv *kvstore.Store, fs *firestore.Client, led *ledger.Ledger, cfg Config) *PortfolioJob {
	return &PortfolioJob{kv: kv, fs: fs, ledger: led, cfg: cfg}
}

// marketHandle is the per-market state needed to mark transactions to
// market, cached once per run across every portfolio that references it.
type marketHandle struct {
	snap types.Snapshot
	hist types.Hist
}

// pendingUpdate is one portfolio document's computed fields, queued for a
// batched commit.
type pendingUpdate struct {
	docID   string
	updates []firestore.Update
}

// Run streams every portfolio, recomputes its valuation, and commits the
// results in batches of cfg.BatchSize using a bounded worker pool.
func (j *PortfolioJob) Run(ctx context.Context) error {
	timeLog, err := j.kv.GetTime(ctx)
	if err != nil {
		return fmt.Errorf("read time log: %w", err)
	}

	cache := map[types.MarketID]*marketHandle{}
	var pending []pendingUpdate

	err = j.ledger.StreamPortfolios(ctx, func(id string, pf types.Portfolio) error {
		updates, err := j.computeUpdates(ctx, pf, timeLog, cache)
		if err != nil {
			return err
		}
		pending = append(pending, pendingUpdate{docID: id, updates: updates})
		return nil
	})
	if err != nil {
		return fmt.Errorf("stream portfolios: %w", err)
	}

	return j.commitBatches(ctx, pending)
}

func (j *PortfolioJob) computeUpdates(ctx context.Context, pf types.Portfolio, timeLog types.TimeLog, cache map[types.MarketID]*marketHandle) ([]firestore.Update, error) {
	refTimes := map[types.Timeframe]int64{
		types.TFDaily:       firstOrZero(timeLog.D),
		types.TFWeekly:      firstOrZero(timeLog.W),
		types.TFMonthly:     firstOrZero(timeLog.M),
		types.TFLongMonthly: firstOrZero(timeLog.L),
	}

	currentTotal := 0.0
	histTotal := map[types.Timeframe]float64{}

	for _, tx := range pf.Transactions {
		h, err := j.handle(ctx, tx.Market, cache)
		if err != nil {
			return nil, err
		}
		if h == nil {
			continue
		}

		currentTotal += spotValueNow(*h, tx.Quantity) - tx.Price

		for tf, refTime := range refTimes {
			if refTime == 0 {
				continue
			}
			contribution := 0.0
			if int64(tx.Time) <= refTime {
				contribution = spotValueAtHistStart(*h, tf, tx.Quantity) - tx.Price
			}
			histTotal[tf] += contribution
		}
	}

	currentValue := currentTotal + initialCash
	updates := []firestore.Update{{Path: "current_value", Value: currentValue}}

	returnsPath := map[types.Timeframe]string{
		types.TFDaily:       "returns_d",
		types.TFWeekly:      "returns_w",
		types.TFMonthly:     "returns_m",
		types.TFLongMonthly: "returns_M",
	}
	for tf, path := range returnsPath {
		total, ok := histTotal[tf]
		if !ok {
			continue
		}
		histValue := total + initialCash
		if histValue == 0 {
			continue
		}
		updates = append(updates, firestore.Update{Path: path, Value: currentValue/histValue - 1})
	}

	return updates, nil
}

func (j *PortfolioJob) handle(ctx context.Context, market types.MarketID, cache map[types.MarketID]*marketHandle) (*marketHandle, error) {
	if h, ok := cache[market]; ok {
		return h, nil
	}
	snap, ok, err := j.kv.GetSnapshot(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", market, err)
	}
	if !ok {
		cache[market] = nil
		return nil, nil
	}
	hist, _, err := j.kv.GetHist(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("read hist %s: %w", market, err)
	}
	h := &marketHandle{snap: snap, hist: hist}
	cache[market] = h
	return h, nil
}

// spotValueNow marks quantity q to the market's current snapshot.
func spotValueNow(h marketHandle, q types.Quantity) float64 {
	if q.IsVector {
		team, ok := h.snap.Team()
		if !ok {
			return 0
		}
		return marketmaker.SpotValueTeam(team.X, team.B, q.Vector)
	}
	player, ok := h.snap.Player()
	if !ok {
		return 0
	}
	if q.Scalar >= 0 {
		return q.Scalar * marketmaker.SpotLong(player.N, player.B)
	}
	return -q.Scalar * marketmaker.SpotShort(player.N, player.B)
}

// spotValueAtHistStart marks quantity q to the market's oldest recorded
// snapshot for tf (index 0), the "value at the reference time" used for
// historical-returns reconstruction.
func spotValueAtHistStart(h marketHandle, tf types.Timeframe, q types.Quantity) float64 {
	if q.IsVector {
		xs := h.hist.X[tf]
		bs := h.hist.B[tf]
		if len(xs) == 0 || len(bs) == 0 {
			return 0
		}
		return marketmaker.SpotValueTeam(xs[0], bs[0], q.Vector)
	}
	ns := h.hist.N[tf]
	bs := h.hist.B[tf]
	if len(ns) == 0 || len(bs) == 0 {
		return 0
	}
	if q.Scalar >= 0 {
		return q.Scalar * marketmaker.SpotLong(ns[0], bs[0])
	}
	return -q.Scalar * marketmaker.SpotShort(ns[0], bs[0])
}

func firstOrZero(seq []int64) int64 {
	if len(seq) == 0 {
		return 0
	}
	return seq[0]
}

// commitBatches groups pending updates into chunks of cfg.BatchSize
// (matching the document store's 500-op batch limit, §4.6) and commits the
// chunks concurrently through a bounded worker pool.
func (j *PortfolioJob) commitBatches(ctx context.Context, pending []pendingUpdate) error {
	if len(pending) == 0 {
		return nil
	}

	batchSize := j.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 499
	}

	var chunks [][]pendingUpdate
	for i := 0; i < len(pending); i += batchSize {
		end := i + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		chunks = append(chunks, pending[i:end])
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(1, j.cfg.WorkerPool))

	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			batch := j.fs.Batch()
			for _, p := range chunk {
				batch.Update(j.fs.Collection("portfolios").Doc(p.docID), p.updates)
			}
			if _, err := batch.Commit(ctx); err != nil {
				return fmt.Errorf("commit valuation batch: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Package bootstrap implements the admin market-seed bootstrap
// (the /init_redis endpoint): reading the team/player market ID lists from
// disk and writing a zero-inventory snapshot for any market not already
// present in the key-value store.
package bootstrap

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"scoremarket/internal/kvstore"
	"scoremarket/pkg/types"
)

// Initializer seeds missing markets from the team/player ID files.
type Initializer struct {
	kv          *kvstore.Store
	fs          *firestore.Client
	teamsFile   string
	playersFile string
	logger      *slog.Logger
}

// New builds an Initializer pointed at the configured market ID files.
func New(kv *kvstore.Store, fs *firestore.Client, teamsFile, playersFile string, logger *slog.Logger) *Initializer {
	return &Initializer{kv: kv, fs: fs, teamsFile: teamsFile, playersFile: playersFile, logger: logger.With("component", "bootstrap")}
}

// Run reads both market ID files and seeds every market absent from the
// key-value store with a zero-inventory snapshot, an empty Hist, and a
// timestamp appended to every timeframe of the time log. Existing markets
// are left untouched (idempotent).
func (ini *Initializer) Run(ctx context.Context) error {
	teamIDs, err := readLines(ini.teamsFile)
	if err != nil {
		return fmt.Errorf("read teams file: %w", err)
	}
	playerIDs, err := readLines(ini.playersFile)
	if err != nil {
		return fmt.Errorf("read players file: %w", err)
	}

	now := types.Now()
	var tl types.TimeLog
	tlDirty := false

	for _, id := range teamIDs {
		market := types.MarketID(id)
		exists, err := ini.kv.Exists(ctx, market)
		if err != nil {
			return fmt.Errorf("check existing market %s: %w", market, err)
		}
		if exists {
			continue
		}

		n, err := ini.defaultOutcomeCount(ctx, market)
		if err != nil {
			return fmt.Errorf("look up outcome count %s: %w", market, err)
		}
		x := make([]float64, n)

		if err := ini.kv.PutSnapshots(ctx, map[types.MarketID]types.Snapshot{market: types.NewTeamSnapshotWire(x, 1.0)}); err != nil {
			return fmt.Errorf("seed team market %s: %w", market, err)
		}
		if err := ini.kv.PutHists(ctx, map[types.MarketID]types.Hist{market: types.NewTeamHistWire()}); err != nil {
			return fmt.Errorf("seed team history %s: %w", market, err)
		}
		tlDirty = true
	}

	for _, id := range playerIDs {
		market := types.MarketID(id)
		exists, err := ini.kv.Exists(ctx, market)
		if err != nil {
			return fmt.Errorf("check existing market %s: %w", market, err)
		}
		if exists {
			continue
		}

		if err := ini.kv.PutSnapshots(ctx, map[types.MarketID]types.Snapshot{market: types.NewPlayerSnapshotWire(0, 1.0)}); err != nil {
			return fmt.Errorf("seed player market %s: %w", market, err)
		}
		if err := ini.kv.PutHists(ctx, map[types.MarketID]types.Hist{market: types.NewPlayerHistWire()}); err != nil {
			return fmt.Errorf("seed player history %s: %w", market, err)
		}
		tlDirty = true
	}

	if !tlDirty {
		return nil
	}

	loaded, err := ini.kv.GetTime(ctx)
	if err != nil {
		return fmt.Errorf("read time log: %w", err)
	}
	tl = loaded
	for _, tf := range types.AllTimeframes {
		tl.Set(tf, append(tl.Get(tf), int64(now)))
	}
	return ini.kv.PutTime(ctx, tl)
}

// defaultOutcomeCount looks up a team market's outcome count from its
// document-store metadata, defaulting to 2 if no document exists yet.
func (ini *Initializer) defaultOutcomeCount(ctx context.Context, market types.MarketID) (int, error) {
	snap, err := ini.fs.Collection("teams").Doc(string(market)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return 2, nil
	}
	if err != nil {
		return 0, err
	}
	var doc struct {
		OutcomeCount int `firestore:"outcome_count"`
	}
	if err := snap.DataTo(&doc); err != nil || doc.OutcomeCount <= 0 {
		return 2, nil
	}
	return doc.OutcomeCount, nil
}

// LoadMarketUniverse reads the team/player market ID files into typed
// MarketID slices, for callers (scheduler, bot) that need the static market
// universe without seeding anything.
func LoadMarketUniverse(teamsFile, playersFile string) (teams, players []types.MarketID, err error) {
	teamLines, err := readLines(teamsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read teams file: %w", err)
	}
	playerLines, err := readLines(playersFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read players file: %w", err)
	}
	for _, id := range teamLines {
		teams = append(teams, types.MarketID(id))
	}
	for _, id := range playerLines {
		players = append(players, types.MarketID(id))
	}
	return teams, players, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

package api

import (
	"math"
	"testing"

	"scoremarket/internal/marketmaker"
	"scoremarket/pkg/types"
)

func TestBackPriceOfTeamSnapshot(t *testing.T) {
	t.Parallel()
	x := make([]float64, 20)
	snap := types.NewTeamSnapshotWire(x, 4000)
	got := backPriceOf(snap)
	want := marketmaker.BackPriceTeam(x, 4000)
	if got != want {
		t.Errorf("backPriceOf(team) = %v, want %v", got, want)
	}
	if math.Abs(got-3.1408) > 1e-3 {
		t.Errorf("backPriceOf(team, uniform) = %v, want ~3.1408", got)
	}
}

func TestBackPriceOfPlayerSnapshot(t *testing.T) {
	t.Parallel()
	snap := types.NewPlayerSnapshotWire(0, 100)
	got := backPriceOf(snap)
	want := marketmaker.BackPricePlayer(0, 100)
	if got != want {
		t.Errorf("backPriceOf(player) = %v, want %v", got, want)
	}
}

func TestBackPriceHistoryOfTruncatesToShorterSlice(t *testing.T) {
	t.Parallel()
	hist := types.NewTeamHistWire()
	hist.X[types.TFDaily] = [][]float64{{0, 0}, {0, 0}, {0, 0}}
	hist.B[types.TFDaily] = []float64{100, 100} // one short of X

	got := backPriceHistoryOf(hist, types.TFDaily)
	if len(got) != 2 {
		t.Errorf("len = %d, want 2 (truncated to the shorter B slice)", len(got))
	}
}

func TestBackPriceHistoryOfPlayerVariant(t *testing.T) {
	t.Parallel()
	hist := types.NewPlayerHistWire()
	hist.N[types.TFDaily] = []float64{-10, 0, 10}
	hist.B[types.TFDaily] = []float64{100, 100, 100}

	got := backPriceHistoryOf(hist, types.TFDaily)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := marketmaker.BackPricePlayerHistory([]float64{-10, 0, 10}, []float64{100, 100, 100})
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

package tradeengine

import (
	"math"
	"testing"

	"scoremarket/internal/apperr"
	"scoremarket/pkg/types"
)

func boolPtr(b bool) *bool { return &b }

func TestApplyCommitTeamMarket(t *testing.T) {
	t.Parallel()
	market := types.MarketID("1:8:17420T")
	current := types.NewTeamSnapshotWire([]float64{0, 0, 0}, 4000)
	form := types.PurchaseForm{Market: market, Quantity: types.VectorQuantity([]float64{10, 0, 0})}

	next, price, err := applyCommit(market, current, form)
	if err != nil {
		t.Fatalf("applyCommit: %v", err)
	}
	team, ok := next.Team()
	if !ok {
		t.Fatal("expected a team snapshot")
	}
	if team.X[0] != 10 {
		t.Errorf("X[0] = %v, want 10", team.X[0])
	}
	if price <= 0 {
		t.Errorf("price = %v, want > 0 for a positive trade", price)
	}
}

func TestApplyCommitTeamMarketRejectsScalarQuantity(t *testing.T) {
	t.Parallel()
	market := types.MarketID("1:8:17420T")
	current := types.NewTeamSnapshotWire([]float64{0, 0}, 4000)
	form := types.PurchaseForm{Market: market, Quantity: types.ScalarQuantity(5)}

	if _, _, err := applyCommit(market, current, form); err == nil {
		t.Error("expected an error when a team market receives a scalar quantity")
	} else if !apperr.Is(err, apperr.Malformed) {
		t.Errorf("expected Malformed kind, got %v", err)
	}
}

func TestApplyCommitPlayerMarketLong(t *testing.T) {
	t.Parallel()
	market := types.MarketID("2:3:99100P")
	current := types.NewPlayerSnapshotWire(0, 100)
	form := types.PurchaseForm{Market: market, Quantity: types.ScalarQuantity(5), Long: boolPtr(true)}

	next, price, err := applyCommit(market, current, form)
	if err != nil {
		t.Fatalf("applyCommit: %v", err)
	}
	player, ok := next.Player()
	if !ok {
		t.Fatal("expected a player snapshot")
	}
	if player.N != 5 {
		t.Errorf("N = %v, want 5", player.N)
	}
	if price <= 0 {
		t.Errorf("price = %v, want > 0", price)
	}
}

func TestApplyCommitPlayerMarketShort(t *testing.T) {
	t.Parallel()
	market := types.MarketID("2:3:99100P")
	current := types.NewPlayerSnapshotWire(0, 100)
	form := types.PurchaseForm{Market: market, Quantity: types.ScalarQuantity(5), Long: boolPtr(false)}

	next, _, err := applyCommit(market, current, form)
	if err != nil {
		t.Fatalf("applyCommit: %v", err)
	}
	player, _ := next.Player()
	if player.N != -5 {
		t.Errorf("N = %v, want -5", player.N)
	}
}

func TestApplyCommitPlayerMarketMissingLong(t *testing.T) {
	t.Parallel()
	market := types.MarketID("2:3:99100P")
	current := types.NewPlayerSnapshotWire(0, 100)
	form := types.PurchaseForm{Market: market, Quantity: types.ScalarQuantity(5)}

	if _, _, err := applyCommit(market, current, form); err == nil {
		t.Error("expected an error when long is not specified for a player market")
	} else if !apperr.Is(err, apperr.MissingField) {
		t.Errorf("expected MissingField kind, got %v", err)
	}
}

func TestApplyCommitInvalidMarketSuffix(t *testing.T) {
	t.Parallel()
	market := types.MarketID("garbage")
	current := types.NewTeamSnapshotWire([]float64{0}, 100)
	form := types.PurchaseForm{Market: market}

	if _, _, err := applyCommit(market, current, form); !apperr.Is(err, apperr.InvalidMarket) {
		t.Errorf("expected InvalidMarket kind, got %v", err)
	}
}

func TestApplyUndoReversesCommitTeam(t *testing.T) {
	t.Parallel()
	market := types.MarketID("1:8:17420T")
	x0 := []float64{0, 0, 0}
	q := []float64{7, -3, 2}
	form := types.PurchaseForm{Market: market, Quantity: types.VectorQuantity(q)}

	committed, _, err := applyCommit(market, types.NewTeamSnapshotWire(x0, 4000), form)
	if err != nil {
		t.Fatalf("applyCommit: %v", err)
	}
	undone, err := applyUndo(market, committed, form)
	if err != nil {
		t.Fatalf("applyUndo: %v", err)
	}
	team, _ := undone.Team()
	for i := range x0 {
		if math.Abs(team.X[i]-x0[i]) > 1e-12 {
			t.Errorf("X[%d] = %v, want %v after round-trip commit/undo", i, team.X[i], x0[i])
		}
	}
}

func TestApplyUndoReversesCommitPlayerLong(t *testing.T) {
	t.Parallel()
	market := types.MarketID("2:3:99100P")
	form := types.PurchaseForm{Market: market, Quantity: types.ScalarQuantity(12), Long: boolPtr(true)}

	committed, _, err := applyCommit(market, types.NewPlayerSnapshotWire(0, 100), form)
	if err != nil {
		t.Fatalf("applyCommit: %v", err)
	}
	undone, err := applyUndo(market, committed, form)
	if err != nil {
		t.Fatalf("applyUndo: %v", err)
	}
	player, _ := undone.Player()
	if math.Abs(player.N) > 1e-12 {
		t.Errorf("N = %v, want 0 after round-trip commit/undo", player.N)
	}
}

func TestApplyUndoReversesCommitPlayerShort(t *testing.T) {
	t.Parallel()
	market := types.MarketID("2:3:99100P")
	form := types.PurchaseForm{Market: market, Quantity: types.ScalarQuantity(12), Long: boolPtr(false)}

	committed, _, err := applyCommit(market, types.NewPlayerSnapshotWire(0, 100), form)
	if err != nil {
		t.Fatalf("applyCommit: %v", err)
	}
	undone, err := applyUndo(market, committed, form)
	if err != nil {
		t.Fatalf("applyUndo: %v", err)
	}
	player, _ := undone.Player()
	if math.Abs(player.N) > 1e-12 {
		t.Errorf("N = %v, want 0 after round-trip commit/undo", player.N)
	}
}

func TestAddVecSubVecRoundTrip(t *testing.T) {
	t.Parallel()
	a := []float64{1, 2, 3}
	b := []float64{0.5, -1, 2}
	sum := addVec(a, b)
	back := subVec(sum, b)
	for i := range a {
		if math.Abs(back[i]-a[i]) > 1e-12 {
			t.Errorf("index %d: got %v, want %v", i, back[i], a[i])
		}
	}
}

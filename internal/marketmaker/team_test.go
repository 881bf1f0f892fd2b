package marketmaker

import (
	"math"
	"testing"
)

func TestCostTeamUniformX(t *testing.T) {
	t.Parallel()
	x := make([]float64, 20)
	got := CostTeam(x, 4000)
	want := 4000 * math.Log(20)
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("CostTeam = %v, want %v", got, want)
	}
}

func TestBackPriceTeamUniformQuote(t *testing.T) {
	t.Parallel()
	x := make([]float64, 20)
	got := BackPriceTeam(x, 4000)
	want := 3.1408
	if math.Abs(got-want) > 1e-3 {
		t.Errorf("BackPriceTeam = %v, want ~%v", got, want)
	}
}

func TestPriceTradeTeamMatchesCostDelta(t *testing.T) {
	t.Parallel()
	x := []float64{10, 20, 5}
	q := []float64{1, -1, 0}
	got := PriceTradeTeam(x, 100, q)
	xq := []float64{11, 19, 5}
	want := CostTeam(xq, 100) - CostTeam(x, 100)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("PriceTradeTeam = %v, want %v", got, want)
	}
}

func TestSpotValueTeamSumsToOneOnUnitVector(t *testing.T) {
	t.Parallel()
	x := []float64{5, 5, 5, 5}
	q := []float64{1, 1, 1, 1}
	got := SpotValueTeam(x, 50, q)
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("SpotValueTeam(ones) = %v, want 1", got)
	}
}

func TestQBackReversedIndexConvention(t *testing.T) {
	t.Parallel()
	q := QBack(3, 6)
	if math.Abs(q[2]-10) > 1e-9 {
		t.Errorf("q_back[last] = %v, want 10", q[2])
	}
	if !(q[0] < q[1] && q[1] < q[2]) {
		t.Errorf("q_back should be increasing toward the last index, got %v", q)
	}
}

func TestPricesAgreeCeilingConvention(t *testing.T) {
	t.Parallel()
	cases := []struct {
		p1, p2 float64
		want   bool
	}{
		{1.201, 1.209, true},
		{1.200, 1.201, false},
		{0.0, 0.0, true},
		{1.2099999, 1.21, true},
	}
	for _, c := range cases {
		got := PricesAgree(c.p1, c.p2)
		if got != c.want {
			t.Errorf("PricesAgree(%v, %v) = %v, want %v", c.p1, c.p2, got, c.want)
		}
	}
}

func TestSpotValueTeamHistoryAlignment(t *testing.T) {
	t.Parallel()
	xs := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	bs := []float64{10, 10, 10}
	q := []float64{1, 0}
	got := SpotValueTeamHistory(xs, bs, q)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := range xs {
		want := SpotValueTeam(xs[i], bs[i], q)
		if got[i] != want {
			t.Errorf("index %d: got %v, want %v", i, got[i], want)
		}
	}
}

package ledger

import (
	"reflect"
	"sort"
	"testing"

	"scoremarket/pkg/types"
)

func TestRoundPenniesRoundsToTwoDecimals(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in, want float64
	}{
		{1.005, 1.01},
		{1.004, 1.0},
		{0.1 + 0.2, 0.3},
		{10, 10},
	}
	for _, c := range cases {
		got := roundPennies(c.in)
		if got != c.want {
			t.Errorf("roundPennies(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestAddQuantityVectorSumsComponentwise(t *testing.T) {
	t.Parallel()
	old := types.VectorQuantity([]float64{1, 2, 3})
	add := types.VectorQuantity([]float64{0.5, -1, 2})
	got := addQuantity(old, add)
	want := []float64{1.5, 1, 5}
	for i := range want {
		if got.Vector[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, got.Vector[i], want[i])
		}
	}
}

func TestAddQuantityVectorNoPriorHolding(t *testing.T) {
	t.Parallel()
	var old types.Quantity // zero value: no prior holding
	add := types.VectorQuantity([]float64{1, 2})
	got := addQuantity(old, add)
	if !reflect.DeepEqual(got.Vector, []float64{1, 2}) {
		t.Errorf("got %v, want [1,2]", got.Vector)
	}
}

func TestAddQuantityScalarSums(t *testing.T) {
	t.Parallel()
	old := types.ScalarQuantity(5)
	add := types.ScalarQuantity(-3)
	got := addQuantity(old, add)
	if got.Scalar != 2 {
		t.Errorf("got %v, want 2", got.Scalar)
	}
}

func TestIsNearZeroVector(t *testing.T) {
	t.Parallel()
	if !isNearZero(types.VectorQuantity([]float64{0.001, -0.002, 0})) {
		t.Error("expected near-zero vector to be treated as zero")
	}
	if isNearZero(types.VectorQuantity([]float64{0.001, 0.1, 0})) {
		t.Error("expected a vector with a non-trivial component to not be near-zero")
	}
}

func TestIsNearZeroScalar(t *testing.T) {
	t.Parallel()
	if !isNearZero(types.ScalarQuantity(0.001)) {
		t.Error("expected near-zero scalar to be treated as zero")
	}
	if isNearZero(types.ScalarQuantity(0.1)) {
		t.Error("expected a non-trivial scalar to not be near-zero")
	}
}

func TestSearchTermsPrefixesAndLowercases(t *testing.T) {
	t.Parallel()
	got := searchTerms("Team Alpha")
	want := []string{"a", "al", "alp", "alph", "alpha", "t", "te", "tea", "team"}
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("searchTerms = %v, want %v", got, want)
	}
}

func TestSearchTermsFoldsDiacritics(t *testing.T) {
	t.Parallel()
	got := searchTerms("José")
	found := false
	for _, term := range got {
		if term == "jose" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected diacritic-folded term 'jose' in %v", got)
	}
}

func TestFoldDiacritics(t *testing.T) {
	t.Parallel()
	if got := foldDiacritics("café"); got != "cafe" {
		t.Errorf("foldDiacritics(café) = %q, want cafe", got)
	}
	if got := foldDiacritics("plain"); got != "plain" {
		t.Errorf("foldDiacritics(plain) = %q, want plain", got)
	}
}

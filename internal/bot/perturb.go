package bot

import (
	"math"
	"math/rand"
)

// perturbPlayerBelief adds Gaussian noise (sigma = 0.05) to m and clips the
// result to [0.005, 0.995] (spec §4.7).
func perturbPlayerBelief(rng *rand.Rand, m, sigma float64) float64 {
	v := m + rng.NormFloat64()*sigma
	if v < 0.005 {
		return 0.005
	}
	if v > 0.995 {
		return 0.995
	}
	return v
}

// perturbTeamBelief multiplies m by an exponential ramp over its index and
// renormalizes. Direction (ascending/descending) is chosen uniformly;
// steepness is drawn from U(1,3) (spec §4.7).
func perturbTeamBelief(rng *rand.Rand, m []float64) []float64 {
	n := len(m)
	steepness := 1 + rng.Float64()*2
	ascending := rng.Intn(2) == 0

	ramped := make([]float64, n)
	sum := 0.0
	for i, p := range m {
		t := float64(i) / float64(maxI(n-1, 1))
		if !ascending {
			t = 1 - t
		}
		ramp := math.Pow(steepness, t)
		ramped[i] = p * ramp
		sum += ramped[i]
	}
	if sum == 0 {
		return m
	}
	for i := range ramped {
		ramped[i] /= sum
	}
	return ramped
}

func maxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}

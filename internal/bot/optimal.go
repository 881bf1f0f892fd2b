package bot

import (
	"math"
	"sort"

	"scoremarket/internal/marketmaker"
	"scoremarket/internal/numeric"
)

const (
	brentTol     = 1e-9
	brentMaxIter = 100
)

// optimalTeamTrade computes the bounded-budget trade toward target
// distribution m (spec §4.7). For each j from 0 to N-1, it additively
// shifts q_opt = b*log(m)-x by a solved scalar k with the j smallest
// q_opt dimensions zeroed, rounds the candidate to 2 decimals, and checks
// it against the budget. The first candidate costing under 10 aborts the
// whole search with no trade (ok=false) rather than trying a later j — a
// qualifying trade only exists if the very first j tried clears that
// floor. A Brent failure for any j likewise aborts the whole search rather
// than skipping to the next j, matching the original's single try/except
// wrapped around the entire loop.
func optimalTeamTrade(x []float64, b float64, m []float64) (q []float64, cost float64, ok bool) {
	n := len(x)
	budget := 0.01 * b

	qOpt := make([]float64, n)
	for i := range x {
		qOpt[i] = b*math.Log(m[i]) - x[i]
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, c int) bool { return qOpt[order[a]] < qOpt[order[c]] })

	qOptMax := qOpt[0]
	for _, v := range qOpt[1:] {
		if v > qOptMax {
			qOptMax = v
		}
	}
	kMin := -qOptMax
	costAtX := marketmaker.CostTeam(x, b)

	for j := 0; j < n; j++ {
		zeroed := make(map[int]bool, j)
		for i := 0; i < j; i++ {
			zeroed[order[i]] = true
		}

		candidateAt := func(k float64) []float64 {
			cq := make([]float64, n)
			for i := range qOpt {
				if zeroed[i] {
					continue
				}
				cq[i] = qOpt[i] + k
			}
			return cq
		}

		kMax := budget - qOpt[j] + costAtX - x[j]

		f := func(k float64) float64 {
			return marketmaker.PriceTradeTeam(x, b, candidateAt(k)) - budget
		}

		k, err := numeric.BrentSolve(f, kMin, kMax, brentTol, brentMaxIter)
		if err != nil {
			return nil, 0, false
		}

		candidate := candidateAt(k)
		for i := range candidate {
			candidate[i] = math.Round(candidate[i]*100) / 100
		}

		tradeCost := marketmaker.PriceTradeTeam(x, b, candidate)
		if tradeCost < 10 {
			return nil, 0, false
		}

		allNonNeg := true
		for _, v := range candidate {
			if v < 0 {
				allNonNeg = false
				break
			}
		}
		if allNonNeg {
			return candidate, tradeCost, true
		}
	}

	return nil, 0, false
}

// optimalPlayerTrade computes the bot's bounded-budget trade toward target
// probability m for a player market (spec §4.7). Returns (n, isLong, ok);
// n is the signed delta to apply to N (positive = buy longs).
func optimalPlayerTrade(N, b, m float64) (n float64, isLong bool, ok bool) {
	if math.Abs(marketmaker.SpotLong(N, b)-m) < 5e-4 {
		return 0, false, false
	}

	g := func(candidate float64) float64 {
		return marketmaker.SpotLong(N+candidate, b) - m
	}

	n0, solved := bracketAndSolve(g, 40*b)
	if !solved {
		n0, solved = bracketAndSolve(g, 400*b)
		if !solved {
			return 0, false, false
		}
	}

	isLong = n0 >= 0
	budget := 0.01 * b

	var cost float64
	if isLong {
		cost = marketmaker.PriceTradeLong(N, b, n0)
	} else {
		cost = marketmaker.PriceTradeShort(N, b, -n0)
	}

	if cost > budget {
		var costFn func(float64) float64
		if isLong {
			costFn = func(mag float64) float64 { return marketmaker.PriceTradeLong(N, b, mag) - budget }
		} else {
			costFn = func(mag float64) float64 { return marketmaker.PriceTradeShort(N, b, mag) - budget }
		}
		mag, err := numeric.BrentSolve(costFn, 0, math.Abs(n0), brentTol, brentMaxIter)
		if err != nil {
			return 0, false, false
		}
		if isLong {
			n0 = mag
		} else {
			n0 = -mag
		}
	}

	return n0, isLong, true
}

func bracketAndSolve(g func(float64) float64, halfWidth float64) (float64, bool) {
	n0, err := numeric.BrentSolve(g, -halfWidth, halfWidth, brentTol, brentMaxIter)
	return n0, err == nil
}

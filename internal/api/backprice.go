package api

import (
	"scoremarket/internal/marketmaker"
	"scoremarket/pkg/types"
)

// backPriceOf computes the back price of a market's current snapshot
// against the fixed reference claim vector (spec §4.1).
func backPriceOf(snap types.Snapshot) float64 {
	if team, ok := snap.Team(); ok {
		return marketmaker.BackPriceTeam(team.X, team.B)
	}
	if player, ok := snap.Player(); ok {
		return marketmaker.BackPricePlayer(player.N, player.B)
	}
	return 0
}

// backPriceHistoryOf computes the back-price series for a market's
// historical samples at timeframe tf.
func backPriceHistoryOf(hist types.Hist, tf types.Timeframe) []float64 {
	if hist.IsTeam() {
		team := hist.Team()
		xs := team.X[tf]
		bs := team.B[tf]
		n := len(xs)
		if len(bs) < n {
			n = len(bs)
		}
		return marketmaker.BackPriceTeamHistory(xs[:n], bs[:n])
	}

	player := hist.Player()
	ns := player.N[tf]
	bs := player.B[tf]
	n := len(ns)
	if len(bs) < n {
		n = len(bs)
	}
	return marketmaker.BackPricePlayerHistory(ns[:n], bs[:n])
}

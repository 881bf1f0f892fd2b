// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the exchange core — market
// identifiers, snapshots, historical series, portfolio documents, and the
// wire forms the HTTP surface accepts. It has no dependencies on internal
// packages, so it can be imported by any layer.
package types

import "time"

// ————————————————————————————————————————————————————————————————————————
// Market identifiers
// ————————————————————————————————————————————————————————————————————————

// Variant discriminates the two market kinds by the terminal character of
// a MarketID: 'T' = team (vector inventory, multi-outcome), 'P' = player
// (scalar inventory, long/short).
type Variant byte

const (
	VariantTeam   Variant = 'T'
	VariantPlayer Variant = 'P'
)

// MarketID is an opaque short string of the form "<entity>:<league>:<season>T"
// or "...P". The terminal character is the only part callers should parse;
// the rest is opaque to the core.
type MarketID string

// Variant returns the market's variant from its terminal character, or false
// if the ID is empty or carries an unrecognized suffix.
func (m MarketID) Variant() (Variant, bool) {
	if len(m) == 0 {
		return 0, false
	}
	switch v := Variant(m[len(m)-1]); v {
	case VariantTeam, VariantPlayer:
		return v, true
	default:
		return 0, false
	}
}

// ————————————————————————————————————————————————————————————————————————
// Snapshots
// ————————————————————————————————————————————————————————————————————————

// TeamSnapshot is the current state of a team (multi-outcome) market.
// N, the outcome count, is discoverable only from len(X) and must be stable
// across every snapshot of one market.
type TeamSnapshot struct {
	X []float64 `json:"x"`
	B float64   `json:"b"`
}

// PlayerSnapshot is the current state of a player (long/short) market.
// N is the net long position; negative means net short.
type PlayerSnapshot struct {
	N float64 `json:"N"`
	B float64 `json:"b"`
}

// Snapshot is the key-value store's wire representation of a market
// snapshot: the union of TeamSnapshot and PlayerSnapshot, discriminated by
// which inventory field is present. C2 stores and loads this shape
// directly; C1 and C3 work against the narrower TeamSnapshot/PlayerSnapshot
// views via the accessors below.
type Snapshot struct {
	X []float64 `json:"x,omitempty"`
	N *float64  `json:"N,omitempty"`
	B float64   `json:"b"`
}

// NewTeamSnapshotWire builds the wire Snapshot for a team market.
func NewTeamSnapshotWire(x []float64, b float64) Snapshot {
	return Snapshot{X: x, B: b}
}

// NewPlayerSnapshotWire builds the wire Snapshot for a player market.
func NewPlayerSnapshotWire(n, b float64) Snapshot {
	return Snapshot{N: &n, B: b}
}

// Team returns the TeamSnapshot view, and whether this snapshot is a team
// market (i.e. X is present).
func (s Snapshot) Team() (TeamSnapshot, bool) {
	if s.X == nil {
		return TeamSnapshot{}, false
	}
	return TeamSnapshot{X: s.X, B: s.B}, true
}

// Player returns the PlayerSnapshot view, and whether this snapshot is a
// player market (i.e. N is present).
func (s Snapshot) Player() (PlayerSnapshot, bool) {
	if s.N == nil {
		return PlayerSnapshot{}, false
	}
	return PlayerSnapshot{N: *s.N, B: s.B}, true
}

// ————————————————————————————————————————————————————————————————————————
// Historical series & time log
// ————————————————————————————————————————————————————————————————————————

// Timeframe is one of the five rolling-history resolutions.
type Timeframe string

const (
	TFHourly      Timeframe = "h"
	TFDaily       Timeframe = "d"
	TFWeekly      Timeframe = "w"
	TFMonthly     Timeframe = "m"
	TFLongMonthly Timeframe = "M"
)

// AllTimeframes is the canonical iteration order used throughout the core.
var AllTimeframes = []Timeframe{TFHourly, TFDaily, TFWeekly, TFMonthly, TFLongMonthly}

// TeamHist is the historical series for a team market: one sample sequence
// per timeframe, for both axes (inventory vector and liquidity).
type TeamHist struct {
	X map[Timeframe][][]float64 `json:"x"`
	B map[Timeframe][]float64   `json:"b"`
}

// PlayerHist is the historical series for a player market.
type PlayerHist struct {
	N map[Timeframe][]float64 `json:"N"`
	B map[Timeframe][]float64 `json:"b"`
}

// NewTeamHist returns an empty history with all timeframe maps initialized.
func NewTeamHist() *TeamHist {
	h := &TeamHist{X: make(map[Timeframe][][]float64), B: make(map[Timeframe][]float64)}
	for _, tf := range AllTimeframes {
		h.X[tf] = nil
		h.B[tf] = nil
	}
	return h
}

// NewPlayerHist returns an empty history with all timeframe maps initialized.
func NewPlayerHist() *PlayerHist {
	h := &PlayerHist{N: make(map[Timeframe][]float64), B: make(map[Timeframe][]float64)}
	for _, tf := range AllTimeframes {
		h.N[tf] = nil
		h.B[tf] = nil
	}
	return h
}

// Hist is the key-value store's wire representation of a market's
// historical series: the union of TeamHist and PlayerHist, discriminated by
// which inventory map is present (mirrors Snapshot).
type Hist struct {
	X map[Timeframe][][]float64 `json:"x,omitempty"`
	N map[Timeframe][]float64   `json:"N,omitempty"`
	B map[Timeframe][]float64   `json:"b"`
}

// NewTeamHistWire builds an empty wire Hist for a team market.
func NewTeamHistWire() Hist {
	th := NewTeamHist()
	return Hist{X: th.X, B: th.B}
}

// NewPlayerHistWire builds an empty wire Hist for a player market.
func NewPlayerHistWire() Hist {
	ph := NewPlayerHist()
	return Hist{N: ph.N, B: ph.B}
}

// IsTeam reports whether this Hist belongs to a team market.
func (h Hist) IsTeam() bool { return h.X != nil }

// Team returns the TeamHist view.
func (h Hist) Team() TeamHist { return TeamHist{X: h.X, B: h.B} }

// Player returns the PlayerHist view.
func (h Hist) Player() PlayerHist { return PlayerHist{N: h.N, B: h.B} }

// TimeLog is the singleton recording, per timeframe, the Unix-second
// timestamp of each historical sample — aligned one-to-one with the
// corresponding Hist slices.
type TimeLog struct {
	H []int64 `json:"h"`
	D []int64 `json:"d"`
	W []int64 `json:"w"`
	M []int64 `json:"m"`
	L []int64 `json:"M"`
}

// Get returns the timestamp slice for a timeframe.
func (t *TimeLog) Get(tf Timeframe) []int64 {
	switch tf {
	case TFHourly:
		return t.H
	case TFDaily:
		return t.D
	case TFWeekly:
		return t.W
	case TFMonthly:
		return t.M
	case TFLongMonthly:
		return t.L
	default:
		return nil
	}
}

// Set replaces the timestamp slice for a timeframe.
func (t *TimeLog) Set(tf Timeframe, v []int64) {
	switch tf {
	case TFHourly:
		t.H = v
	case TFDaily:
		t.D = v
	case TFWeekly:
		t.W = v
	case TFMonthly:
		t.M = v
	case TFLongMonthly:
		t.L = v
	}
}

// ————————————————————————————————————————————————————————————————————————
// Quantity — the dynamic Vector|Signed sum collapsed at the public surface
// ————————————————————————————————————————————————————————————————————————

// Quantity is a trade size: a length-N vector for team markets, or a signed
// scalar for player markets. Exactly one representation is meaningful for a
// given market; the tag is dispatched once at the public surface (see
// DESIGN.md), not per arithmetic call site.
type Quantity struct {
	Vector   []float64 `json:"vector,omitempty"`
	Scalar   float64   `json:"scalar,omitempty"`
	IsVector bool      `json:"isVector"`
}

// VectorQuantity builds a team-market Quantity.
func VectorQuantity(v []float64) Quantity { return Quantity{Vector: v, IsVector: true} }

// ScalarQuantity builds a player-market Quantity.
func ScalarQuantity(s float64) Quantity { return Quantity{Scalar: s, IsVector: false} }

// ————————————————————————————————————————————————————————————————————————
// Portfolio documents
// ————————————————————————————————————————————————————————————————————————

// Transaction is a single committed trade recorded in a portfolio's ledger.
type Transaction struct {
	Market   MarketID `json:"market" firestore:"market"`
	Quantity Quantity `json:"quantity" firestore:"quantity"`
	Price    float64  `json:"price" firestore:"price"`
	Time     float64  `json:"time" firestore:"time"`
}

// Portfolio is the document-store representation of one user portfolio.
type Portfolio struct {
	ID           string                `json:"id" firestore:"-"`
	User         string                `json:"user" firestore:"user"`
	Name         string                `json:"name" firestore:"name"`
	Description  string                `json:"description" firestore:"description"`
	Public       bool                  `json:"public" firestore:"public"`
	Cash         float64               `json:"cash" firestore:"cash"`
	CurrentValue float64               `json:"current_value" firestore:"current_value"`
	Holdings     map[MarketID]Quantity `json:"holdings" firestore:"holdings"`
	Transactions []Transaction         `json:"transactions" firestore:"transactions"`
	ReturnsD     float64               `json:"returns_d" firestore:"returns_d"`
	ReturnsW     float64               `json:"returns_w" firestore:"returns_w"`
	ReturnsM     float64               `json:"returns_m" firestore:"returns_m"`
	ReturnsL     float64               `json:"returns_M" firestore:"returns_M"`
	Created      float64               `json:"created" firestore:"created"`
	Active       bool                  `json:"active" firestore:"active"`
	Colours      []string              `json:"colours" firestore:"colours"`
	SearchTerms  []string              `json:"search_terms" firestore:"search_terms"`
}

// ————————————————————————————————————————————————————————————————————————
// Trade wire forms
// ————————————————————————————————————————————————————————————————————————

// PurchaseForm is the validated request body for POST /purchase.
type PurchaseForm struct {
	UID           string
	PortfolioID   string
	Market        MarketID
	Quantity      Quantity
	ExpectedPrice float64
	Long          *bool // only meaningful for player markets
}

// ConfirmationForm is the validated request body for POST /confirm_order.
type ConfirmationForm struct {
	UID      string
	CancelID string
	Confirm  bool
}

// PendingConfirmation is the record persisted under a cancelId with a 60s TTL.
type PendingConfirmation struct {
	Form      PurchaseForm `json:"form"`
	TruePrice float64      `json:"truePrice"`
	UndoJobID string       `json:"undoJobId"`
	CreatedAt int64        `json:"createdAt"`
}

// PurchaseResult is the response body for POST /purchase.
type PurchaseResult struct {
	Success  bool    `json:"success"`
	Price    float64 `json:"price"`
	CancelID *string `json:"cancelId"`
}

// ————————————————————————————————————————————————————————————————————————
// Timestamps
// ————————————————————————————————————————————————————————————————————————

// Now returns the current Unix-seconds timestamp as float64, matching the
// spec's `time: f64` fields.
func Now() float64 { return float64(time.Now().Unix()) }

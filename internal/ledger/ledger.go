// Package ledger implements the portfolio ledger (C4): applying a
// committed trade to a portfolio document and maintaining its cash and
// holdings invariants, plus portfolio creation.
//
// It wraps cloud.google.com/go/firestore the way the teacher wraps resty:
// one thin struct holding the driver handle, every public method a
// document-store operation translated into the driver's idiom.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"scoremarket/internal/apperr"
	"scoremarket/pkg/types"
)

const (
	portfoliosCollection = "portfolios"
	usersCollection      = "users"
	initialCash          = 500.0
	zeroTolerance        = 5e-3
)

// Ledger mutates portfolio documents in the document store.
type Ledger struct {
	fs     *firestore.Client
	logger *slog.Logger
}

// New builds a Ledger over an existing Firestore client.
func New(fs *firestore.Client, logger *slog.Logger) *Ledger {
	return &Ledger{fs: fs, logger: logger.With("component", "ledger")}
}

// roundPennies rounds a float64 dollar amount to 2 decimal places using
// shopspring/decimal, matching the spec's "to pennies" reconciliation
// invariant rather than trusting raw float subtraction.
func roundPennies(v float64) float64 {
	d := decimal.NewFromFloat(v).Round(2)
	f, _ := d.Float64()
	return f
}

// ApplyTransaction reads portfolioID's document, validates ownership and
// funds, updates holdings/cash, and appends the transaction entry — all in
// one Firestore Update call (spec §4.4: "issued in one document update
// batch where supported").
func (l *Ledger) ApplyTransaction(ctx context.Context, form types.PurchaseForm, settledPrice float64) error {
	docRef := l.fs.Collection(portfoliosCollection).Doc(form.PortfolioID)

	snap, err := docRef.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return apperr.New(apperr.PortfolioMissing, form.PortfolioID)
	}
	if err != nil {
		return apperr.Wrap(apperr.TransactionFailed, "read portfolio", err)
	}

	var pf types.Portfolio
	if err := snap.DataTo(&pf); err != nil {
		return apperr.Wrap(apperr.TransactionFailed, "decode portfolio", err)
	}

	if pf.User != form.UID {
		return apperr.New(apperr.Unauthorized, "portfolio owner mismatch")
	}

	settledPrice = roundPennies(settledPrice)
	if pf.Cash < settledPrice {
		return apperr.New(apperr.InsufficientFunds, fmt.Sprintf("cash %.2f < price %.2f", pf.Cash, settledPrice))
	}

	old := pf.Holdings[form.Market]
	newQ := addQuantity(old, form.Quantity)

	updates := []firestore.Update{
		{Path: "cash", Value: roundPennies(pf.Cash - settledPrice)},
		{Path: "transactions", Value: firestore.ArrayUnion(types.Transaction{
			Market:   form.Market,
			Quantity: form.Quantity,
			Price:    settledPrice,
			Time:     types.Now(),
		})},
	}
	if isNearZero(newQ) {
		updates = append(updates, firestore.Update{Path: "holdings." + string(form.Market), Value: firestore.Delete})
	} else {
		updates = append(updates, firestore.Update{Path: "holdings." + string(form.Market), Value: newQ})
	}

	if _, err := docRef.Update(ctx, updates); err != nil {
		return apperr.Wrap(apperr.TransactionFailed, "update portfolio", err)
	}
	return nil
}

// addQuantity adds new onto old, vector-add for team markets and
// scalar-add for player markets. A zero-value old (no prior holding) is
// treated as the additive identity of whichever shape new carries.
func addQuantity(old, new types.Quantity) types.Quantity {
	if new.IsVector {
		if old.Vector == nil {
			old.Vector = make([]float64, len(new.Vector))
		}
		sum := make([]float64, len(new.Vector))
		for i := range new.Vector {
			sum[i] = old.Vector[i] + new.Vector[i]
		}
		return types.VectorQuantity(sum)
	}
	return types.ScalarQuantity(old.Scalar + new.Scalar)
}

// isNearZero reports whether q is element-wise within zeroTolerance of
// zero (spec §4.4: DELETE the holdings field in that case).
func isNearZero(q types.Quantity) bool {
	if q.IsVector {
		for _, v := range q.Vector {
			if math.Abs(v) > zeroTolerance {
				return false
			}
		}
		return true
	}
	return math.Abs(q.Scalar) <= zeroTolerance
}

// CreatePortfolio composes and writes a new portfolio document, then
// appends its ID to the owning user's portfolio list.
func (l *Ledger) CreatePortfolio(ctx context.Context, uid, username, name, description string, public bool) (string, error) {
	docRef := l.fs.Collection(portfoliosCollection).NewDoc()

	pf := types.Portfolio{
		User:         uid,
		Name:         name,
		Description:  description,
		Public:       public,
		Cash:         initialCash,
		CurrentValue: initialCash,
		Holdings:     map[types.MarketID]types.Quantity{},
		Transactions: nil,
		Created:      types.Now(),
		Active:       true,
		SearchTerms:  searchTerms(name, username),
	}

	if _, err := docRef.Set(ctx, pf); err != nil {
		return "", apperr.Wrap(apperr.TransactionFailed, "create portfolio", err)
	}

	userRef := l.fs.Collection(usersCollection).Doc(uid)
	if _, err := userRef.Update(ctx, []firestore.Update{
		{Path: "portfolios", Value: firestore.ArrayUnion(docRef.ID)},
	}); err != nil {
		return "", apperr.Wrap(apperr.TransactionFailed, "link portfolio to user", err)
	}

	return docRef.ID, nil
}

// searchTerms builds the set of lower-cased, diacritic-folded prefixes of
// every whitespace-split word across name and username.
func searchTerms(names ...string) []string {
	set := make(map[string]struct{})
	for _, n := range names {
		for _, word := range strings.Fields(n) {
			folded := foldDiacritics(strings.ToLower(word))
			for i := 1; i <= len(folded); i++ {
				set[folded[:i]] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// foldDiacritics strips combining marks after NFD decomposition, so "é"
// folds to "e".
func foldDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

// StreamPortfolios iterates every portfolio document, invoking fn for each.
// Used by the valuation job (C6) to rebuild current_value/returns.
func (l *Ledger) StreamPortfolios(ctx context.Context, fn func(id string, pf types.Portfolio) error) error {
	it := l.fs.Collection(portfoliosCollection).Documents(ctx)
	defer it.Stop()
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream portfolios: %w", err)
		}
		var pf types.Portfolio
		if err := doc.DataTo(&pf); err != nil {
			l.logger.Error("decode portfolio", "id", doc.Ref.ID, "error", err)
			continue
		}
		if err := fn(doc.Ref.ID, pf); err != nil {
			l.logger.Error("process portfolio", "id", doc.Ref.ID, "error", err)
		}
	}
}

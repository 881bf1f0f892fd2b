// Package tradeengine implements the trade engine (C3): the quote/commit
// protocol, price-agreement logic, the agreed/disagreed paths, order
// confirmation, and the compensating undo.
package tradeengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scoremarket/internal/apperr"
	"scoremarket/internal/config"
	"scoremarket/internal/kvstore"
	"scoremarket/internal/ledger"
	"scoremarket/internal/marketmaker"
	"scoremarket/internal/undoqueue"
	"scoremarket/pkg/types"
)

// Engine is the trade engine (C3).
type Engine struct {
	kv        *kvstore.Store
	ledger    *ledger.Ledger
	undoQueue *undoqueue.Queue
	cfg       config.TradeConfig
	logger    *slog.Logger
}

// New wires the trade engine's collaborators.
func New(kv *kvstore.Store, led *ledger.Ledger, uq *undoqueue.Queue, cfg config.TradeConfig, logger *slog.Logger) *Engine {
	return &Engine{kv: kv, ledger: led, undoQueue: uq, cfg: cfg, logger: logger.With("component", "tradeengine")}
}

// Purchase runs the quote/commit protocol for a validated purchase form.
func (e *Engine) Purchase(ctx context.Context, form types.PurchaseForm) (types.PurchaseResult, error) {
	exists, err := e.kv.Exists(ctx, form.Market)
	if err != nil {
		return types.PurchaseResult{}, err
	}
	if !exists {
		return types.PurchaseResult{}, apperr.New(apperr.MarketNotFound, string(form.Market))
	}

	var truePrice float64
	committed, err := e.kv.WatchThenUpdate(ctx, form.Market, e.cfg.CommitRetries, e.cfg.RetryBackoff, func(current types.Snapshot) (types.Snapshot, error) {
		next, price, err := applyCommit(form.Market, current, form)
		if err != nil {
			return types.Snapshot{}, err
		}
		truePrice = price
		return next, nil
	})
	if err != nil {
		return types.PurchaseResult{}, err
	}
	_ = committed

	if marketmaker.PricesAgree(form.ExpectedPrice, truePrice) {
		if err := e.ledger.ApplyTransaction(ctx, form, truePrice); err != nil {
			if undoErr := e.Undo(ctx, form); undoErr != nil {
				e.logger.Error("undo after failed apply_transaction also failed", "market", form.Market, "error", undoErr)
			}
			return types.PurchaseResult{}, err
		}
		return types.PurchaseResult{Success: true, Price: truePrice, CancelID: nil}, nil
	}

	cancelID := uuid.NewString()
	fireAt := time.Now().Unix() + int64(e.cfg.DisagreementTTL.Seconds())
	jobID, err := e.undoQueue.Schedule(ctx, form, fireAt)
	if err != nil {
		return types.PurchaseResult{}, fmt.Errorf("schedule compensating undo: %w", err)
	}

	pending := types.PendingConfirmation{
		Form:      form,
		TruePrice: truePrice,
		UndoJobID: jobID,
		CreatedAt: time.Now().Unix(),
	}
	if err := e.kv.SetEx(ctx, cancelID, e.cfg.DisagreementTTL, pending); err != nil {
		return types.PurchaseResult{}, fmt.Errorf("persist pending confirmation: %w", err)
	}

	return types.PurchaseResult{Success: false, Price: truePrice, CancelID: &cancelID}, nil
}

// ConfirmOrder resolves a disagreed purchase by cancelId.
func (e *Engine) ConfirmOrder(ctx context.Context, form types.ConfirmationForm) (string, error) {
	var pending types.PendingConfirmation
	found, err := e.kv.GetAndDelete(ctx, form.CancelID, &pending)
	if err != nil {
		return "", err
	}
	if !found {
		return "", apperr.New(apperr.ConfirmationTooLate, form.CancelID)
	}
	if pending.Form.UID != form.UID {
		return "", apperr.New(apperr.Unauthorized, "cancelId does not belong to caller")
	}

	if err := e.undoQueue.Cancel(ctx, pending.UndoJobID); err != nil {
		e.logger.Error("cancel scheduled undo", "jobId", pending.UndoJobID, "error", err)
	}

	if !form.Confirm {
		if err := e.Undo(ctx, pending.Form); err != nil {
			return "", fmt.Errorf("execute undo on decline: %w", err)
		}
		return "Order cancelled", nil
	}

	if err := e.ledger.ApplyTransaction(ctx, pending.Form, pending.TruePrice); err != nil {
		if undoErr := e.Undo(ctx, pending.Form); undoErr != nil {
			e.logger.Error("undo after failed confirm apply_transaction also failed", "market", pending.Form.Market, "error", undoErr)
		}
		return "", err
	}
	return "Order confirmed", nil
}

// Undo reverses a commit against the key-value store: the opposite of the
// commit step, under the same watch/retry discipline bounded at
// cfg.UndoRetries attempts (spec §4.3). It is idempotent to call twice only
// in the sense that calling it against an already-undone snapshot is a
// well-defined (if redundant) inventory shift; callers are responsible for
// not double-scheduling it (handled by undoQueue.Cancel racing the
// confirmation handler on the same cancelId record).
func (e *Engine) Undo(ctx context.Context, form types.PurchaseForm) error {
	_, err := e.kv.WatchThenUpdate(ctx, form.Market, e.cfg.UndoRetries, e.cfg.RetryBackoff, func(current types.Snapshot) (types.Snapshot, error) {
		return applyUndo(form.Market, current, form)
	})
	return err
}

// ProcessDueUndos drains every undo job whose fire time has passed and
// executes it. Called by the scheduler (C9) on each tick.
func (e *Engine) ProcessDueUndos(ctx context.Context) {
	jobs, err := e.undoQueue.PopDue(ctx, time.Now().Unix())
	if err != nil {
		e.logger.Error("pop due undo jobs", "error", err)
		return
	}
	for _, job := range jobs {
		if err := e.Undo(ctx, job.Form); err != nil {
			e.logger.Error("execute scheduled undo", "market", job.Form.Market, "jobId", job.JobID, "error", err)
		}
	}
}

// applyCommit computes the true price and proposed post-trade snapshot for
// a purchase form against the currently-watched snapshot.
func applyCommit(market types.MarketID, current types.Snapshot, form types.PurchaseForm) (types.Snapshot, float64, error) {
	variant, ok := market.Variant()
	if !ok {
		return types.Snapshot{}, 0, apperr.New(apperr.InvalidMarket, string(market))
	}

	switch variant {
	case types.VariantTeam:
		team, ok := current.Team()
		if !ok {
			return types.Snapshot{}, 0, apperr.New(apperr.InvalidMarket, "snapshot is not a team market")
		}
		if !form.Quantity.IsVector {
			return types.Snapshot{}, 0, apperr.New(apperr.Malformed, "quantity must be a vector for a team market")
		}
		price := marketmaker.PriceTradeTeam(team.X, team.B, form.Quantity.Vector)
		newX := addVec(team.X, form.Quantity.Vector)
		return types.NewTeamSnapshotWire(newX, team.B), price, nil

	case types.VariantPlayer:
		player, ok := current.Player()
		if !ok {
			return types.Snapshot{}, 0, apperr.New(apperr.InvalidMarket, "snapshot is not a player market")
		}
		if form.Long == nil {
			return types.Snapshot{}, 0, apperr.New(apperr.MissingField, "long")
		}
		sign := -1.0
		if *form.Long {
			sign = 1.0
		}
		q := form.Quantity.Scalar
		var price float64
		if *form.Long {
			price = marketmaker.PriceTradeLong(player.N, player.B, q)
		} else {
			price = marketmaker.PriceTradeShort(player.N, player.B, q)
		}
		newN := player.N + q*sign
		return types.NewPlayerSnapshotWire(newN, player.B), price, nil
	}

	return types.Snapshot{}, 0, apperr.New(apperr.InvalidMarket, string(market))
}

// applyUndo computes the snapshot that reverses form's commit.
func applyUndo(market types.MarketID, current types.Snapshot, form types.PurchaseForm) (types.Snapshot, error) {
	variant, ok := market.Variant()
	if !ok {
		return types.Snapshot{}, apperr.New(apperr.InvalidMarket, string(market))
	}

	switch variant {
	case types.VariantTeam:
		team, ok := current.Team()
		if !ok {
			return types.Snapshot{}, apperr.New(apperr.InvalidMarket, "snapshot is not a team market")
		}
		newX := subVec(team.X, form.Quantity.Vector)
		return types.NewTeamSnapshotWire(newX, team.B), nil

	case types.VariantPlayer:
		player, ok := current.Player()
		if !ok {
			return types.Snapshot{}, apperr.New(apperr.InvalidMarket, "snapshot is not a player market")
		}
		sign := -1.0
		if form.Long != nil && *form.Long {
			sign = 1.0
		}
		newN := player.N - form.Quantity.Scalar*sign
		return types.NewPlayerSnapshotWire(newN, player.B), nil
	}

	return types.Snapshot{}, apperr.New(apperr.InvalidMarket, string(market))
}

func addVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func subVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"scoremarket/internal/apperr"
	"scoremarket/internal/auth"
	"scoremarket/internal/bootstrap"
	"scoremarket/internal/kvstore"
	"scoremarket/internal/ledger"
	"scoremarket/internal/tradeengine"
	"scoremarket/pkg/types"
)

// errMissingAuthHeader is distinguished from a rejected token (401) at the
// documented 407 status (spec §6).
var errMissingAuthHeader = errors.New("missing Authorization header")

const maxMarketsPerRequest = 100

// Handlers holds every HTTP handler's dependencies.
type Handlers struct {
	verifier *auth.Verifier
	kv       *kvstore.Store
	engine   *tradeengine.Engine
	ledger   *ledger.Ledger
	bootInit *bootstrap.Initializer
	hub      *Hub
	logger   *slog.Logger
}

// NewHandlers builds the handler set.
func NewHandlers(verifier *auth.Verifier, kv *kvstore.Store, engine *tradeengine.Engine, led *ledger.Ledger, bootInit *bootstrap.Initializer, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{verifier: verifier, kv: kv, engine: engine, ledger: led, bootInit: bootInit, hub: hub, logger: logger.With("component", "api-handlers")}
}

// HandleHealth answers a trivial liveness probe.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleCurrentHoldings implements GET /current_holdings.
func (h *Handlers) HandleCurrentHoldings(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authenticate(r); err != nil {
		writeError(w, err)
		return
	}
	markets, err := parseMarkets(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if len(markets) == 1 {
		snap, ok, err := h.kv.GetSnapshot(r.Context(), markets[0])
		if err != nil {
			writeError(w, err)
			return
		}
		if !ok {
			writeError(w, apperr.New(apperr.MarketNotFound, string(markets[0])))
			return
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}

	out := make(map[types.MarketID]*types.Snapshot, len(markets))
	snaps, err := h.kv.GetManySnapshots(r.Context(), markets)
	if err != nil {
		writeError(w, err)
		return
	}
	for i, m := range markets {
		out[m] = snaps[i]
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleHistoricalHoldings implements GET /historical_holdings.
func (h *Handlers) HandleHistoricalHoldings(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authenticate(r); err != nil {
		writeError(w, err)
		return
	}
	markets, err := parseMarkets(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if len(markets) == 1 {
		hist, ok, err := h.kv.GetHist(r.Context(), markets[0])
		if err != nil {
			writeError(w, err)
			return
		}
		if !ok {
			writeError(w, apperr.New(apperr.MarketNotFound, string(markets[0])))
			return
		}
		writeJSON(w, http.StatusOK, hist)
		return
	}

	out := make(map[types.MarketID]*types.Hist, len(markets))
	hists, err := h.kv.GetManyHist(r.Context(), markets)
	if err != nil {
		writeError(w, err)
		return
	}
	for i, m := range markets {
		out[m] = hists[i]
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleCurrentBackPrices implements GET /current_back_prices.
func (h *Handlers) HandleCurrentBackPrices(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authenticate(r); err != nil {
		writeError(w, err)
		return
	}
	markets, err := parseMarkets(r)
	if err != nil {
		writeError(w, err)
		return
	}

	snaps, err := h.kv.GetManySnapshots(r.Context(), markets)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make(map[types.MarketID]*float64, len(markets))
	for i, m := range markets {
		if snaps[i] == nil {
			out[m] = nil
			continue
		}
		price := backPriceOf(*snaps[i])
		out[m] = &price
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDailyBackPrices implements GET /daily_back_prices.
func (h *Handlers) HandleDailyBackPrices(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authenticate(r); err != nil {
		writeError(w, err)
		return
	}
	markets, err := parseMarkets(r)
	if err != nil {
		writeError(w, err)
		return
	}

	hists, err := h.kv.GetManyHist(r.Context(), markets)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make(map[types.MarketID][]float64, len(markets))
	for i, m := range markets {
		if hists[i] == nil {
			out[m] = nil
			continue
		}
		out[m] = backPriceHistoryOf(*hists[i], types.TFDaily)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePurchase implements POST /purchase.
func (h *Handlers) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	uid, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.Malformed, "decode purchase request", err))
		return
	}
	if req.PortfolioID == "" || req.Market == "" {
		writeError(w, apperr.New(apperr.MissingField, "portfolioId and market are required"))
		return
	}

	market := types.MarketID(req.Market)
	variant, ok := market.Variant()
	if !ok {
		writeError(w, apperr.New(apperr.InvalidMarket, req.Market))
		return
	}

	quantity, err := decodeQuantity(variant, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}

	form := types.PurchaseForm{
		UID:           uid,
		PortfolioID:   req.PortfolioID,
		Market:        market,
		Quantity:      quantity,
		ExpectedPrice: req.Price,
		Long:          req.Long,
	}

	result, err := h.engine.Purchase(r.Context(), form)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(Event{Type: "purchase", Data: result})
	writeJSON(w, http.StatusOK, purchaseResponse{Success: result.Success, Price: result.Price, CancelID: result.CancelID})
}

// HandleConfirmOrder implements POST /confirm_order.
func (h *Handlers) HandleConfirmOrder(w http.ResponseWriter, r *http.Request) {
	uid, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.Malformed, "decode confirmation request", err))
		return
	}
	if req.CancelID == "" {
		writeError(w, apperr.New(apperr.MissingField, "cancelId is required"))
		return
	}

	status, err := h.engine.ConfirmOrder(r.Context(), types.ConfirmationForm{UID: uid, CancelID: req.CancelID, Confirm: req.Confirm})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// HandleCreatePortfolio implements POST /create_portfolio.
func (h *Handlers) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	uid, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createPortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.Malformed, "decode create-portfolio request", err))
		return
	}
	if req.Name == "" {
		writeError(w, apperr.New(apperr.MissingField, "name is required"))
		return
	}

	id, err := h.ledger.CreatePortfolio(r.Context(), uid, uid, req.Name, req.Description, req.Public)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "portfolioId": id})
}

// HandleInitRedis implements GET /init_redis: admin-only idempotent seed of
// every configured team/player market at zero inventory, from the team and
// player market-ID files named in the markets config.
func (h *Handlers) HandleInitRedis(w http.ResponseWriter, r *http.Request) {
	if err := h.verifier.VerifyAdmin(r.Header.Get("X-Admin-Secret")); err != nil {
		writeError(w, err)
		return
	}
	if err := h.bootInit.Run(r.Context()); err != nil {
		writeError(w, apperr.Wrap(apperr.TransactionFailed, "init_redis", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleUpdateB implements POST /update_b: admin-only liquidity update for
// one or more markets, applied under the same watch/CAS discipline as a trade.
func (h *Handlers) HandleUpdateB(w http.ResponseWriter, r *http.Request) {
	if err := h.verifier.VerifyAdmin(r.Header.Get("X-Admin-Secret")); err != nil {
		writeError(w, err)
		return
	}

	var req updateBRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.Malformed, "decode update_b request", err))
		return
	}

	for market, newB := range req {
		if newB <= 0 {
			writeError(w, apperr.New(apperr.NumericDomain, "b must be positive"))
			return
		}
		_, err := h.kv.WatchThenUpdate(r.Context(), market, 20, 0, func(current types.Snapshot) (types.Snapshot, error) {
			current.B = newB
			return current, nil
		})
		if err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleWebSocket upgrades the connection to the opt-in spectator feed.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	newWSClient(h.hub, conn)
}

// authenticate extracts and verifies the bearer token, mapping a missing
// header to the documented 407.
func (h *Handlers) authenticate(r *http.Request) (string, error) {
	bearer := r.Header.Get("Authorization")
	if bearer == "" {
		return "", errMissingAuthHeader
	}
	bearer = strings.TrimPrefix(bearer, "Bearer ")
	return h.verifier.Verify(r.Context(), bearer)
}

// parseMarkets reads the market=<id> or markets=<csv> query parameter.
func parseMarkets(r *http.Request) ([]types.MarketID, error) {
	if single := r.URL.Query().Get("market"); single != "" {
		return []types.MarketID{types.MarketID(single)}, nil
	}
	csv := r.URL.Query().Get("markets")
	if csv == "" {
		return nil, apperr.New(apperr.MissingField, "market or markets is required")
	}
	parts := strings.Split(csv, ",")
	if len(parts) > maxMarketsPerRequest {
		return nil, apperr.New(apperr.Malformed, "too many markets requested")
	}
	markets := make([]types.MarketID, len(parts))
	for i, p := range parts {
		markets[i] = types.MarketID(strings.TrimSpace(p))
	}
	return markets, nil
}

// decodeQuantity re-marshals req's loosely-typed quantity field into the
// shape its market's variant requires: a vector for team markets, a scalar
// for player markets.
func decodeQuantity(variant types.Variant, raw any) (types.Quantity, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return types.Quantity{}, apperr.Wrap(apperr.Malformed, "re-encode quantity", err)
	}

	if variant == types.VariantTeam {
		var vec []float64
		if err := json.Unmarshal(data, &vec); err != nil {
			return types.Quantity{}, apperr.Wrap(apperr.Malformed, "quantity must be a vector for a team market", err)
		}
		return types.VectorQuantity(vec), nil
	}

	var scalar float64
	if err := json.Unmarshal(data, &scalar); err != nil {
		return types.Quantity{}, apperr.Wrap(apperr.Malformed, "quantity must be a number for a player market", err)
	}
	return types.ScalarQuantity(scalar), nil
}

// httpStatusFor maps an apperr.Kind to the documented HTTP status (spec §6).
func httpStatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.MissingField, apperr.Malformed, apperr.InvalidMarket, apperr.NumericDomain:
		return http.StatusBadRequest
	case apperr.MarketNotFound, apperr.PortfolioMissing:
		return http.StatusNotFound
	case apperr.Contention:
		return http.StatusConflict
	case apperr.ConfirmationTooLate:
		return http.StatusBadRequest
	case apperr.InsufficientFunds, apperr.TransactionFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errMissingAuthHeader) {
		writeJSON(w, 407, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, httpStatusFor(err), map[string]string{"error": err.Error()})
}

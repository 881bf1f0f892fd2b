package api

import "scoremarket/pkg/types"

// purchaseRequest is the JSON body for POST /purchase.
type purchaseRequest struct {
	PortfolioID   string  `json:"portfolioId"`
	Market        string  `json:"market"`
	Quantity      any     `json:"quantity"`
	Price         float64 `json:"price"`
	Long          *bool   `json:"long,omitempty"`
}

// confirmRequest is the JSON body for POST /confirm_order.
type confirmRequest struct {
	CancelID string `json:"cancelId"`
	Confirm  bool   `json:"confirm"`
}

// createPortfolioRequest is the JSON body for POST /create_portfolio.
type createPortfolioRequest struct {
	Name        string `json:"name"`
	Public      bool   `json:"public"`
	Description string `json:"description"`
}

// updateBRequest is the JSON body for POST /update_b: market -> new liquidity.
type updateBRequest map[types.MarketID]float64

// purchaseResponse mirrors types.PurchaseResult with the wire field names
// documented in spec §6.
type purchaseResponse struct {
	Success  bool    `json:"success"`
	Price    float64 `json:"price"`
	CancelID *string `json:"cancelId"`
}

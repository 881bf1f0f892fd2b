// Package api implements the HTTP surface (C8): request parsing, auth
// delegation, and dispatch into the trade engine (C3), ledger (C4), and
// key-value store (C2) reads.
//
// It follows the teacher's dashboard server shape — a stdlib
// http.ServeMux wired up in NewServer, handlers grouped in one struct —
// generalized from a read-only dashboard to the full read/write trading
// surface, plus an optional spectator WebSocket feed adapted from the
// teacher's hub.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"scoremarket/internal/auth"
	"scoremarket/internal/bootstrap"
	"scoremarket/internal/config"
	"scoremarket/internal/kvstore"
	"scoremarket/internal/ledger"
	"scoremarket/internal/tradeengine"
)

// Server runs the HTTP API for the trading core.
type Server struct {
	cfg      config.ServerConfig
	handlers *Handlers
	hub      *Hub
	server   *http.Server
	logger   *slog.Logger
}

// NewServer wires the HTTP surface's dependencies into a stdlib mux.
func NewServer(
	cfg config.ServerConfig,
	verifier *auth.Verifier,
	kv *kvstore.Store,
	engine *tradeengine.Engine,
	led *ledger.Ledger,
	bootInit *bootstrap.Initializer,
	logger *slog.Logger,
) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(verifier, kv, engine, led, bootInit, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/current_holdings", handlers.HandleCurrentHoldings)
	mux.HandleFunc("/historical_holdings", handlers.HandleHistoricalHoldings)
	mux.HandleFunc("/current_back_prices", handlers.HandleCurrentBackPrices)
	mux.HandleFunc("/daily_back_prices", handlers.HandleDailyBackPrices)
	mux.HandleFunc("/purchase", handlers.HandlePurchase)
	mux.HandleFunc("/confirm_order", handlers.HandleConfirmOrder)
	mux.HandleFunc("/create_portfolio", handlers.HandleCreatePortfolio)
	mux.HandleFunc("/init_redis", handlers.HandleInitRedis)
	mux.HandleFunc("/update_b", handlers.HandleUpdateB)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)
	mux.HandleFunc("/health", handlers.HandleHealth)

	srv := &http.Server{
		Addr:         cfg.BindAddress,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		handlers: handlers,
		hub:      hub,
		server:   srv,
		logger:   logger.With("component", "api-server"),
	}
}

// Start runs the spectator hub and blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	go s.hub.Run()

	s.logger.Info("api server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Broadcast pushes an event to every connected spectator, if any.
func (s *Server) Broadcast(eventType string, data any) {
	s.hub.Broadcast(Event{Type: eventType, Data: data})
}

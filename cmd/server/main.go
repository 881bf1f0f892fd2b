// scoremarket-server is the entry point for the prediction-market pricing,
// trading, and valuation core.
//
// Lifecycle: load config → wire collaborators → start the HTTP surface and
// the background scheduler → wait for SIGINT/SIGTERM → graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"

	"scoremarket/internal/api"
	"scoremarket/internal/auth"
	"scoremarket/internal/bootstrap"
	"scoremarket/internal/bot"
	"scoremarket/internal/config"
	"scoremarket/internal/history"
	"scoremarket/internal/kvstore"
	"scoremarket/internal/ledger"
	"scoremarket/internal/scheduler"
	"scoremarket/internal/tradeengine"
	"scoremarket/internal/undoqueue"
	"scoremarket/internal/valuation"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("SCOREMARKET_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	ctx := context.Background()

	if cfg.Firestore.EmulatorHost != "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost)
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firestore.ProjectID})
	if err != nil {
		logger.Error("failed to init firebase app", "error", err)
		os.Exit(1)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		logger.Error("failed to init firestore client", "error", err)
		os.Exit(1)
	}
	defer fs.Close()

	kv := kvstore.New(cfg.Redis, logger)
	defer kv.Close()

	uq := undoqueue.New(kv.Raw())
	led := ledger.New(fs, logger)
	verifier := auth.New(cfg.Auth, logger)
	engine := tradeengine.New(kv, led, uq, cfg.Trade, logger)
	snapshotter := history.New(kv, cfg.History, logger)
	marketJob := valuation.NewMarketJob(kv, fs, cfg.Valuation, logger)
	portfolioJob := valuation.NewPortfolioJob(kv, fs, led, valuation.Config{BatchSize: cfg.Valuation.BatchSize, WorkerPool: cfg.Valuation.WorkerPool})
	tradingBot := bot.New(kv, cfg.Bot, logger)
	bootInit := bootstrap.New(kv, fs, cfg.Markets.TeamsFile, cfg.Markets.PlayersFile, logger)

	teamMarkets, playerMarkets, err := bootstrap.LoadMarketUniverse(cfg.Markets.TeamsFile, cfg.Markets.PlayersFile)
	if err != nil {
		logger.Error("failed to load market universe", "error", err)
		os.Exit(1)
	}

	apiServer := api.NewServer(cfg.Server, verifier, kv, engine, led, bootInit, logger)
	sched := scheduler.New(kv, snapshotter, marketJob, portfolioJob, tradingBot, engine, teamMarkets, playerMarkets, logger)

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("api server failed", "error", err)
		}
	}()

	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	logger.Info("scoremarket server started",
		"bind_address", cfg.Server.BindAddress,
		"teams", len(teamMarkets),
		"players", len(playerMarkets),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	sched.Stop()
	if err := apiServer.Stop(); err != nil {
		logger.Error("failed to stop api server", "error", err)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package config defines all configuration for the prediction-market core.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via SCOREMARKET_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
	Trade     TradeConfig     `mapstructure:"trade"`
	History   HistoryConfig   `mapstructure:"history"`
	Valuation ValuationConfig `mapstructure:"valuation"`
	Bot       BotConfig       `mapstructure:"bot"`
	Markets   MarketsConfig   `mapstructure:"markets"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// MarketsConfig points at the market-universe ID files the admin bootstrap
// and scheduler read on startup.
type MarketsConfig struct {
	TeamsFile   string `mapstructure:"teams_file"`   // e.g. data/teams.txt
	PlayersFile string `mapstructure:"players_file"` // e.g. data/players.txt
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	BindAddress string `mapstructure:"bind_address"`
}

// RedisConfig points at the key-value store holding snapshots, history, and
// the time log.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	Password     string        `mapstructure:"password"`
}

// FirestoreConfig points at the document store holding portfolios, users,
// teams, and players.
type FirestoreConfig struct {
	ProjectID     string `mapstructure:"project_id"`
	EmulatorHost  string `mapstructure:"emulator_host"`
}

// TradeConfig tunes the optimistic-concurrency trade pipeline.
//
//   - CommitRetries: bounded attempts for the commit watch/CAS loop (spec: 100).
//   - UndoRetries: bounded attempts for the compensating undo loop (spec: 200).
//   - RetryBackoff: sleep between watch/CAS attempts.
//   - DisagreementTTL: how long a disagreed purchase form lives before its
//     scheduled undo fires (spec: 60s).
type TradeConfig struct {
	CommitRetries   int           `mapstructure:"commit_retries"`
	UndoRetries     int           `mapstructure:"undo_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	DisagreementTTL time.Duration `mapstructure:"disagreement_ttl"`
}

// HistoryConfig tunes the rolling-history snapshotter's retention policy.
type HistoryConfig struct {
	RetentionCap        int `mapstructure:"retention_cap"`         // h/d/w/m cap (spec: 60)
	LongMonthlyCap       int `mapstructure:"long_monthly_cap"`       // M cap (spec: 120)
	InitialMaxIntervalMin int `mapstructure:"initial_max_interval_min"` // minutes (spec: 672)
}

// ValuationConfig tunes the per-market and per-portfolio valuation jobs.
type ValuationConfig struct {
	BatchSize  int `mapstructure:"batch_size"`  // document-store batch limit (spec: 499)
	WorkerPool int `mapstructure:"worker_pool"` // bounded concurrency for batch commits
	SamplePoints int `mapstructure:"sample_points"` // target samples per timeframe (spec: ~30)
}

// BotConfig tunes the simulated-liquidity trading bot.
type BotConfig struct {
	TickEvery         time.Duration `mapstructure:"tick_every"`          // spec: 10 minutes
	SelectionProb     float64       `mapstructure:"selection_prob"`      // spec: ~1/6
	PlayerNoiseSigma  float64       `mapstructure:"player_noise_sigma"`  // spec: 0.05
	BeliefFile        string        `mapstructure:"belief_file_dir"`     // dir holding team_ms.json / player_ms.json
	TradeLogDir       string        `mapstructure:"trade_log_dir"`       // logs/trades
}

// AuthConfig configures bearer-token verification.
type AuthConfig struct {
	JWKSURL      string `mapstructure:"jwks_url"`
	SharedSecret string `mapstructure:"shared_secret"`
	AdminSecret  string `mapstructure:"admin_secret"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: SCOREMARKET_AUTH_SHARED_SECRET,
// SCOREMARKET_AUTH_ADMIN_SECRET, SCOREMARKET_REDIS_PASSWORD.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SCOREMARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if secret := os.Getenv("SCOREMARKET_AUTH_SHARED_SECRET"); secret != "" {
		cfg.Auth.SharedSecret = secret
	}
	if secret := os.Getenv("SCOREMARKET_AUTH_ADMIN_SECRET"); secret != "" {
		cfg.Auth.AdminSecret = secret
	}
	if pass := os.Getenv("SCOREMARKET_REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Server.BindAddress == "" {
		return fmt.Errorf("server.bind_address is required")
	}
	if c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required")
	}
	if c.Firestore.ProjectID == "" {
		return fmt.Errorf("firestore.project_id is required")
	}
	if c.Trade.CommitRetries <= 0 {
		return fmt.Errorf("trade.commit_retries must be > 0")
	}
	if c.Trade.UndoRetries <= 0 {
		return fmt.Errorf("trade.undo_retries must be > 0")
	}
	if c.Trade.DisagreementTTL <= 0 {
		return fmt.Errorf("trade.disagreement_ttl must be > 0")
	}
	if c.History.RetentionCap <= 0 {
		return fmt.Errorf("history.retention_cap must be > 0")
	}
	if c.History.LongMonthlyCap <= 0 {
		return fmt.Errorf("history.long_monthly_cap must be > 0")
	}
	if c.Valuation.BatchSize <= 0 || c.Valuation.BatchSize > 499 {
		return fmt.Errorf("valuation.batch_size must be in (0, 499]")
	}
	if c.Valuation.WorkerPool <= 0 {
		return fmt.Errorf("valuation.worker_pool must be > 0")
	}
	if c.Auth.SharedSecret == "" && c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth.shared_secret or auth.jwks_url is required")
	}
	if c.Markets.TeamsFile == "" || c.Markets.PlayersFile == "" {
		return fmt.Errorf("markets.teams_file and markets.players_file are required")
	}
	return nil
}

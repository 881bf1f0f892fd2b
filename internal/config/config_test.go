package config

import "testing"

func validConfig() Config {
	return Config{
		Server:    ServerConfig{BindAddress: ":8080"},
		Redis:     RedisConfig{Address: "localhost:6379"},
		Firestore: FirestoreConfig{ProjectID: "scoremarket-dev"},
		Trade: TradeConfig{
			CommitRetries:   100,
			UndoRetries:     200,
			DisagreementTTL: 60_000_000_000, // 60s in ns
		},
		History: HistoryConfig{
			RetentionCap:   60,
			LongMonthlyCap: 120,
		},
		Valuation: ValuationConfig{
			BatchSize:  499,
			WorkerPool: 8,
		},
		Auth: AuthConfig{
			SharedSecret: "dev-secret",
		},
		Markets: MarketsConfig{
			TeamsFile:   "data/teams.txt",
			PlayersFile: "data/players.txt",
		},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on well-formed config = %v, want nil", err)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	t.Parallel()
	mutations := []struct {
		name    string
		mutate  func(*Config)
	}{
		{"empty bind address", func(c *Config) { c.Server.BindAddress = "" }},
		{"empty redis address", func(c *Config) { c.Redis.Address = "" }},
		{"empty firestore project", func(c *Config) { c.Firestore.ProjectID = "" }},
		{"zero commit retries", func(c *Config) { c.Trade.CommitRetries = 0 }},
		{"negative undo retries", func(c *Config) { c.Trade.UndoRetries = -1 }},
		{"zero disagreement ttl", func(c *Config) { c.Trade.DisagreementTTL = 0 }},
		{"zero retention cap", func(c *Config) { c.History.RetentionCap = 0 }},
		{"zero long monthly cap", func(c *Config) { c.History.LongMonthlyCap = 0 }},
		{"zero batch size", func(c *Config) { c.Valuation.BatchSize = 0 }},
		{"batch size over 499", func(c *Config) { c.Valuation.BatchSize = 500 }},
		{"zero worker pool", func(c *Config) { c.Valuation.WorkerPool = 0 }},
		{"no auth secret or jwks", func(c *Config) {
			c.Auth.SharedSecret = ""
			c.Auth.JWKSURL = ""
		}},
		{"empty teams file", func(c *Config) { c.Markets.TeamsFile = "" }},
		{"empty players file", func(c *Config) { c.Markets.PlayersFile = "" }},
	}

	for _, m := range mutations {
		m := m
		t.Run(m.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			m.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() with %s = nil, want an error", m.name)
			}
		})
	}
}

func TestValidateAcceptsJWKSURLWithoutSharedSecret(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Auth.SharedSecret = ""
	cfg.Auth.JWKSURL = "https://example.com/.well-known/jwks.json"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with jwks_url only = %v, want nil", err)
	}
}

func TestValidateAcceptsBatchSizeAtUpperBound(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Valuation.BatchSize = 499
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with batch_size=499 = %v, want nil", err)
	}
}

package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"PORT", "FRONTEND_ORIGIN", "LOG_LEVEL", "POOL_API_URL", "POOL_ID", "PRICE_API_URL",
	"POOL_CAP", "SUMMARY_REFRESH_MS", "DETAIL_REFRESH_MS", "LEDGER_BACKEND", "LEDGER_DIR",
	"REDIS_URL", "REDIS_PASSWORD", "DATABASE_URL", "SOLANA_RPC_URL", "WALLET_PRIVATE_KEY",
	"WALLET_KEYPAIR_PATH", "POOL_RECEIVER", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	"INFISICAL_CLIENT_ID", "INFISICAL_CLIENT_SECRET",
}

// clearEnv unsets every key; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("TEST_ENVOR_KEY", "")
	if got := envOr("TEST_ENVOR_KEY", "fallback"); got != "fallback" {
		t.Errorf("envOr empty key = %q, want %q", got, "fallback")
	}

	t.Setenv("TEST_ENVOR_KEY", "custom")
	if got := envOr("TEST_ENVOR_KEY", "default"); got != "custom" {
		t.Errorf("envOr set key = %q, want %q", got, "custom")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	checks := []struct {
		name      string
		got, want any
	}{
		{"Port", cfg.Port, "8080"},
		{"FrontendOrigin", cfg.FrontendOrigin, "*"},
		{"PoolAPIURL", cfg.PoolAPIURL, DefaultPoolAPIURL},
		{"PriceAPIURL", cfg.PriceAPIURL, DefaultPriceAPIURL},
		{"SolanaRPCURL", cfg.SolanaRPCURL, DefaultSolanaRPC},
		{"PoolCap", cfg.PoolCap, 100000.0},
		{"SummaryInterval", cfg.SummaryInterval, 30 * time.Second},
		{"DetailInterval", cfg.DetailInterval, 60 * time.Second},
		{"LedgerBackend", cfg.LedgerBackend, BackendMemory},
		{"TelegramToken", cfg.TelegramToken, ""},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("POOL_ID", "POOL1")
	t.Setenv("POOL_CAP", "250000")
	t.Setenv("SUMMARY_REFRESH_MS", "1500")
	t.Setenv("LEDGER_BACKEND", " Redis ")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.PoolCap != 250000 {
		t.Errorf("PoolCap = %v", cfg.PoolCap)
	}
	if cfg.SummaryInterval != 1500*time.Millisecond {
		t.Errorf("SummaryInterval = %v", cfg.SummaryInterval)
	}
	if cfg.LedgerBackend != BackendRedis {
		t.Errorf("LedgerBackend = %q", cfg.LedgerBackend)
	}
	if cfg.PoolReceiver != "POOL1" {
		t.Errorf("PoolReceiver = %q, want POOL_ID fallback", cfg.PoolReceiver)
	}
	if cfg.TelegramToken != "test-token" {
		t.Errorf("TelegramToken = %q", cfg.TelegramToken)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("POOL_CAP", "lots")
	if _, err := Load(); err == nil {
		t.Error("Load should fail on a non-numeric POOL_CAP")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		PoolID:           "POOL1",
		PoolCap:          100000,
		SummaryRefreshMS: 30000,
		DetailRefreshMS:  60000,
		LedgerBackend:    BackendMemory,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"no pool", func(c *Config) { c.PoolID = "" }, "POOL_ID"},
		{"negative cap", func(c *Config) { c.PoolCap = -1 }, "POOL_CAP"},
		{"zero cap", func(c *Config) { c.PoolCap = 0 }, "POOL_CAP"},
		{"zero interval", func(c *Config) { c.DetailRefreshMS = 0 }, "refresh intervals"},
		{"redis without url", func(c *Config) { c.LedgerBackend = BackendRedis }, "REDIS_URL"},
		{"postgres without dsn", func(c *Config) { c.LedgerBackend = BackendPostgres }, "DATABASE_URL"},
		{"unknown backend", func(c *Config) { c.LedgerBackend = "sqlite" }, "sqlite"},
		{"telegram without chat", func(c *Config) { c.TelegramToken = "t" }, "TELEGRAM_CHAT_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"":      slog.LevelInfo,
		"noisy": slog.LevelInfo,
	} {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSecretTargets(t *testing.T) {
	var cfg Config
	targets := secretTargets(&cfg)
	*targets["WALLET_PRIVATE_KEY"] = "secret"
	if cfg.WalletPrivateKey != "secret" {
		t.Error("WALLET_PRIVATE_KEY target should point at the config field")
	}
}

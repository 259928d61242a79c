package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	infisical "github.com/infisical/go-sdk"
)

const (
	DefaultPoolAPIURL  = "https://dlmm-api.meteora.ag/pair"
	DefaultPriceAPIURL = "https://api.coingecko.com/api/v3/simple/price"
	DefaultSolanaRPC   = "https://api.devnet.solana.com"
)

// Ledger backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port           string `env:"PORT" envDefault:"8080"`
	FrontendOrigin string `env:"FRONTEND_ORIGIN" envDefault:"*"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`

	PoolAPIURL  string  `env:"POOL_API_URL" envDefault:"https://dlmm-api.meteora.ag/pair"`
	PoolID      string  `env:"POOL_ID"`
	PriceAPIURL string  `env:"PRICE_API_URL" envDefault:"https://api.coingecko.com/api/v3/simple/price"`
	PoolCap     float64 `env:"POOL_CAP" envDefault:"100000"`

	SummaryRefreshMS int `env:"SUMMARY_REFRESH_MS" envDefault:"30000"`
	DetailRefreshMS  int `env:"DETAIL_REFRESH_MS" envDefault:"60000"`

	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"memory"`
	LedgerDir     string `env:"LEDGER_DIR" envDefault:"./data"`
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	DatabaseURL   string `env:"DATABASE_URL"`

	SolanaRPCURL      string `env:"SOLANA_RPC_URL" envDefault:"https://api.devnet.solana.com"`
	WalletPrivateKey  string `env:"WALLET_PRIVATE_KEY"`
	WalletKeypairPath string `env:"WALLET_KEYPAIR_PATH"`
	PoolReceiver      string `env:"POOL_RECEIVER"`

	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string `env:"TELEGRAM_CHAT_ID"`

	// Computed durations (not from env)
	SummaryInterval time.Duration `env:"-"`
	DetailInterval  time.Duration `env:"-"`
}

// Load parses the environment, overlays Infisical secrets when credentials
// are present and fills derived fields.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	// If Infisical credentials are available, fetch secrets from Infisical
	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		loadFromInfisical(&cfg, clientID, clientSecret)
	}

	cfg.LedgerBackend = strings.ToLower(strings.TrimSpace(cfg.LedgerBackend))
	if cfg.PoolReceiver == "" {
		cfg.PoolReceiver = cfg.PoolID
	}
	cfg.SummaryInterval = time.Duration(cfg.SummaryRefreshMS) * time.Millisecond
	cfg.DetailInterval = time.Duration(cfg.DetailRefreshMS) * time.Millisecond
	return cfg, nil
}

// Validate checks the options the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.PoolID == "" {
		errs = append(errs, errors.New("POOL_ID is required"))
	}
	if c.PoolCap <= 0 {
		errs = append(errs, fmt.Errorf("POOL_CAP must be positive, got %v", c.PoolCap))
	}
	if c.SummaryRefreshMS <= 0 || c.DetailRefreshMS <= 0 {
		errs = append(errs, errors.New("refresh intervals must be positive"))
	}
	switch c.LedgerBackend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("LEDGER_BACKEND=redis needs REDIS_URL"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("LEDGER_BACKEND=postgres needs DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend))
	}
	if c.TelegramToken != "" && c.TelegramChatID == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is set but TELEGRAM_CHAT_ID is empty"))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func loadFromInfisical(cfg *Config, clientID, clientSecret string) {
	siteURL := envOr("INFISICAL_SITE_URL",
		"http://infisical-infisical-standalone-infisical.infisical.svc.cluster.local:8080")
	projectID := os.Getenv("INFISICAL_PROJECT_ID")
	envSlug := envOr("INFISICAL_ENV", "prod")

	if projectID == "" {
		slog.Warn("INFISICAL_PROJECT_ID not set, skipping Infisical")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := infisical.NewInfisicalClient(ctx, infisical.Config{
		SiteUrl:          siteURL,
		AutoTokenRefresh: false,
	})

	_, err := client.Auth().UniversalAuthLogin(clientID, clientSecret)
	if err != nil {
		slog.Error("infisical auth failed", "error", err)
		return
	}

	for key, target := range secretTargets(cfg) {
		if *target != "" {
			continue // env var already set, skip
		}
		secret, err := client.Secrets().Retrieve(infisical.RetrieveSecretOptions{
			SecretKey:   key,
			Environment: envSlug,
			ProjectID:   projectID,
			SecretPath:  "/",
		})
		if err != nil {
			slog.Warn("failed to retrieve secret from infisical", "key", key, "error", err)
			continue
		}
		*target = secret.SecretValue
		slog.Info("loaded secret from infisical", "key", key)
	}
}

// secretTargets lists the fields Infisical may fill.
func secretTargets(cfg *Config) map[string]*string {
	return map[string]*string{
		"WALLET_PRIVATE_KEY": &cfg.WalletPrivateKey,
		"REDIS_PASSWORD":     &cfg.RedisPassword,
		"DATABASE_URL":       &cfg.DatabaseURL,
		"TELEGRAM_BOT_TOKEN": &cfg.TelegramToken,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

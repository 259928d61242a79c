// Package app builds the vault's components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/web3-frozen/sonic-vault/internal/alerts"
	"github.com/web3-frozen/sonic-vault/internal/config"
	"github.com/web3-frozen/sonic-vault/internal/dashboard"
	"github.com/web3-frozen/sonic-vault/internal/dedup"
	"github.com/web3-frozen/sonic-vault/internal/deposit"
	"github.com/web3-frozen/sonic-vault/internal/display"
	"github.com/web3-frozen/sonic-vault/internal/handler"
	"github.com/web3-frozen/sonic-vault/internal/ledger"
	"github.com/web3-frozen/sonic-vault/internal/pool"
	"github.com/web3-frozen/sonic-vault/internal/telegram"
	"github.com/web3-frozen/sonic-vault/internal/wallet"
)

type App struct {
	Config    config.Config
	Ledger    *ledger.Ledger
	Dashboard *dashboard.Dashboard
	Submitter *deposit.Submitter
	Wallet    deposit.Wallet
	Bot       *telegram.Bot
	Alerts    *alerts.Watcher
	Backends  map[string]handler.Pinger

	closers []func()
}

type Options struct {
	// RedisAttempts bounds connection retries at startup.
	RedisAttempts int
	RedisBackoff  time.Duration
}

// New opens the ledger backend, loads the wallet and wires alerts when
// Telegram is configured. Call Close when done.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if opts.RedisAttempts <= 0 {
		opts.RedisAttempts = 1
	}
	a := &App{Config: cfg, Backends: map[string]handler.Pinger{}}

	kv, rdb, err := a.openLedger(ctx, cfg, logger, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Ledger = ledger.New(kv, logger)
	logger.Info("ledger ready", "backend", cfg.LedgerBackend)

	key, err := wallet.LoadKey(cfg.WalletPrivateKey, cfg.WalletKeypairPath)
	switch {
	case errors.Is(err, wallet.ErrNoKey):
		logger.Warn("no wallet key configured, deposits disabled")
		a.Wallet = wallet.Disconnected{}
	case err != nil:
		a.Close()
		return nil, err
	default:
		a.Wallet = wallet.NewSolana(cfg.SolanaRPCURL, key, logger)
		logger.Info("wallet loaded", "address", a.Wallet.Address())
	}

	client := pool.NewClient(cfg.PoolAPIURL, cfg.PoolID, cfg.PriceAPIURL)
	var dashOpts []dashboard.Option
	if cfg.TelegramToken != "" {
		a.Bot = telegram.NewBot(cfg.TelegramToken, a.statusText, logger)
		dashOpts = append(dashOpts, dashboard.OnDetail(func(snap *pool.PoolSnapshot) {
			a.Alerts.OnSnapshot(snap)
		}))
	}

	a.Dashboard = dashboard.New(client, a.Ledger, dashboard.Config{
		Cap:             cfg.PoolCap,
		SummaryInterval: cfg.SummaryInterval,
		DetailInterval:  cfg.DetailInterval,
	}, logger, dashOpts...)

	// Alerts use the dashboard's resolved cap, the same one deposits gate on.
	var subOpts []deposit.Option
	if a.Bot != nil {
		a.Alerts = alerts.NewWatcher(a.Bot, cfg.TelegramChatID, a.deduper(cfg, rdb, logger), cfg.PoolID, a.Dashboard.Cap(), logger)
		subOpts = append(subOpts, deposit.WithNotifier(a.Alerts))
	}
	a.Submitter = deposit.NewSubmitter(cfg.PoolReceiver, a.Dashboard, a.Ledger, logger, subOpts...)
	return a, nil
}

// Close releases backend connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openLedger(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (ledger.KV, *ledger.RedisKV, error) {
	switch cfg.LedgerBackend {
	case config.BackendMemory:
		return ledger.NewMemoryKV(), nil, nil

	case config.BackendFile:
		return ledger.NewFileKV(cfg.LedgerDir), nil, nil

	case config.BackendRedis:
		var (
			kv  *ledger.RedisKV
			err error
		)
		for i := 0; i < opts.RedisAttempts; i++ {
			kv, err = ledger.NewRedisKV(cfg.RedisURL, cfg.RedisPassword)
			if err == nil {
				break
			}
			if i == opts.RedisAttempts-1 {
				break
			}
			logger.Warn("redis not ready, retrying...", "attempt", i+1, "error", err)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(opts.RedisBackoff):
			}
		}
		if err != nil {
			return nil, nil, fmt.Errorf("connect ledger redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = kv.Close() })
		a.Backends["redis"] = kv
		return kv, kv, nil

	case config.BackendPostgres:
		kv, err := ledger.NewPostgresKV(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect ledger database: %w", err)
		}
		a.closers = append(a.closers, kv.Close)
		if err := kv.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate ledger database: %w", err)
		}
		a.Backends["postgres"] = kv
		return kv, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
}

// deduper prefers Redis so alert state survives restarts.
func (a *App) deduper(cfg config.Config, rdb *ledger.RedisKV, logger *slog.Logger) alerts.Deduper {
	if rdb != nil {
		return dedup.NewFromClient(rdb.Client())
	}
	if cfg.RedisURL != "" {
		dd, err := dedup.New(cfg.RedisURL, cfg.RedisPassword)
		if err == nil {
			a.closers = append(a.closers, func() { _ = dd.Close() })
			logger.Info("redis connected for alert dedup")
			return dd
		}
		logger.Warn("redis unavailable for alert dedup, using memory", "error", err)
	}
	return dedup.NewMemory()
}

func (a *App) statusText(context.Context) string {
	s := a.Dashboard.Summary()
	p := a.Dashboard.PoolDetail()
	state := "open"
	if p.VaultFull {
		state = display.LabelVaultFull
	}
	return fmt.Sprintf("📊 <b>%s</b>\n\nTVL: %s\nAPY: %s\nLiquidity: %s / %s (%s)\nCollateral ratio: %s (%s)\nVault: %s",
		s.Name, s.TVL, s.APY, p.Liquidity, p.VaultCap, p.CapacityUsed, s.CollateralRatio, s.Health, state)
}

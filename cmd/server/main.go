package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/web3-frozen/sonic-vault/internal/app"
	"github.com/web3-frozen/sonic-vault/internal/config"
	"github.com/web3-frozen/sonic-vault/internal/handler"
	"github.com/web3-frozen/sonic-vault/internal/middleware"
)

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis retries up to 30s for ExternalSecret to sync
	a, err := app.New(ctx, cfg, logger, app.Options{RedisAttempts: 6, RedisBackoff: 5 * time.Second})
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Start background loops
	loops := a.Dashboard.Start(ctx)
	if a.Bot != nil {
		go a.Bot.Run(ctx)
	}

	// HTTP routes
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())
	r.Get("/readyz", handler.Ready(a.Dashboard, a.Backends))

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", handler.Summary(a.Dashboard))
		r.Get("/pool", handler.Pool(a.Dashboard))
		r.Get("/position", handler.Position(a.Dashboard, a.Wallet.Address()))
		r.Get("/ledger", handler.Ledger(a.Ledger))
		r.Get("/deposit/quote", handler.Quote(a.Dashboard))
		r.Get("/deposit/status", handler.DepositStatus(a.Submitter, a.Wallet, a.Dashboard))
		r.Post("/deposit", handler.Deposit(a.Submitter, a.Wallet))
		r.Post("/withdraw", handler.ComingSoon("withdraw"))
		r.Post("/migrate", handler.ComingSoon("migrate"))
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Deposits wait for on-chain confirmation.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "pool_id", cfg.PoolID, "wallet", a.Wallet.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	loops.Stop()
	cancel()
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/web3-frozen/sonic-vault/internal/app"
	"github.com/web3-frozen/sonic-vault/internal/config"
	"github.com/web3-frozen/sonic-vault/internal/dashboard"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "vaultctl",
		Short:        "Inspect the SONIC-SOL vault and make deposits",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().Duration("timeout", 2*time.Minute, "overall command timeout")

	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Print the pool summary and detail",
		RunE:  runPool,
	}
	root.AddCommand(poolCmd)

	positionCmd := &cobra.Command{
		Use:   "position",
		Short: "Print a wallet's deposited amount and current value",
		RunE:  runPosition,
	}
	positionCmd.Flags().String("wallet", "", "wallet address (default: configured wallet)")
	root.AddCommand(positionCmd)

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit SOL from the configured wallet into the vault",
		RunE:  runDeposit,
	}
	depositCmd.Flags().String("amount", "", "amount of SOL to deposit")
	depositCmd.Flags().Float64("slippage", dashboard.DefaultSlippage, "slippage tolerance in percent (0.5, 1, 2, 5)")
	depositCmd.Flags().Bool("yes", false, "submit without asking for confirmation")
	_ = depositCmd.MarkFlagRequired("amount")
	root.AddCommand(depositCmd)

	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print every recorded deposit",
		RunE:  runLedger,
	}
	root.AddCommand(ledgerCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config and builds the app with a signal-aware context.
func setup(cmd *cobra.Command) (context.Context, *app.App, func(), error) {
	level, _ := cmd.Flags().GetString("log-level")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid log level %q", level)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)

	a, err := app.New(ctx, cfg, logger, app.Options{RedisAttempts: 1})
	if err != nil {
		cancel()
		stop()
		return nil, nil, nil, err
	}
	return ctx, a, func() {
		a.Close()
		cancel()
		stop()
	}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runPool(cmd *cobra.Command, _ []string) error {
	ctx, a, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	if err := a.Dashboard.Refresh(ctx); err != nil {
		return err
	}
	return printJSON(map[string]any{
		"summary": a.Dashboard.Summary(),
		"pool":    a.Dashboard.PoolDetail(),
	})
}

func runPosition(cmd *cobra.Command, _ []string) error {
	ctx, a, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	wallet, _ := cmd.Flags().GetString("wallet")
	if wallet == "" {
		wallet = a.Wallet.Address()
	}
	if wallet == "" {
		return fmt.Errorf("--wallet is required when no wallet key is configured")
	}

	// Position still renders at face value if the pool is unreachable.
	if err := a.Dashboard.Refresh(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	pos, err := a.Dashboard.Position(ctx, wallet)
	if err != nil {
		return err
	}
	return printJSON(pos)
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	amount, _ := cmd.Flags().GetString("amount")
	slippage, _ := cmd.Flags().GetFloat64("slippage")
	yes, _ := cmd.Flags().GetBool("yes")

	ctx, a, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	if err := a.Dashboard.Refresh(ctx); err != nil {
		return fmt.Errorf("load pool state: %w", err)
	}

	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return fmt.Errorf("invalid --amount %q", amount)
	}
	q := a.Dashboard.Quote(v, slippage)
	fmt.Fprintf(os.Stderr, "Depositing %s SOL from %s (minimum received %s, value %s)\n",
		amount, a.Wallet.Address(), q.MinimumText, q.ValueText)

	if !yes {
		fmt.Fprint(os.Stderr, "Proceed? [y/N] ")
		var answer string
		_, _ = fmt.Fscanln(os.Stdin, &answer)
		if answer != "y" && answer != "Y" {
			return fmt.Errorf("aborted")
		}
	}

	receipt, err := a.Submitter.Submit(ctx, a.Wallet, amount)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func runLedger(cmd *cobra.Command, _ []string) error {
	ctx, a, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	doc, err := a.Ledger.All(ctx)
	if err != nil {
		return err
	}
	return printJSON(doc)
}

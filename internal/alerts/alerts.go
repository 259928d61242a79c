// Package alerts announces vault capacity changes and settled deposits.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/web3-frozen/sonic-vault/internal/deposit"
	"github.com/web3-frozen/sonic-vault/internal/derive"
	"github.com/web3-frozen/sonic-vault/internal/display"
	"github.com/web3-frozen/sonic-vault/internal/metrics"
	"github.com/web3-frozen/sonic-vault/internal/pool"
)

const sendTimeout = 10 * time.Second

// Sender delivers a message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Deduper records which alerts were already delivered.
type Deduper interface {
	AlreadySent(ctx context.Context, key string) bool
	Record(ctx context.Context, key string) error
	Clear(ctx context.Context, key string) error
}

// Watcher sends one "Vault is full" notice per full period, a reopen
// notice when liquidity drops back below the cap, and a notice per
// settled deposit.
type Watcher struct {
	sender   Sender
	chatID   string
	dedup    Deduper
	poolID   string
	capacity float64
	logger   *slog.Logger
}

var _ deposit.Notifier = (*Watcher)(nil)

func NewWatcher(sender Sender, chatID string, dedup Deduper, poolID string, capacity float64, logger *slog.Logger) *Watcher {
	return &Watcher{
		sender:   sender,
		chatID:   chatID,
		dedup:    dedup,
		poolID:   poolID,
		capacity: capacity,
		logger:   logger.With("component", "alerts"),
	}
}

// Cap is the capacity the watcher alerts against.
func (w *Watcher) Cap() float64 { return w.capacity }

func (w *Watcher) fullKey() string { return "vault:full:" + w.poolID }

// OnSnapshot is the refresh hook for pool detail updates.
func (w *Watcher) OnSnapshot(snap *pool.PoolSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	w.CheckCapacity(ctx, snap)
}

// CheckCapacity compares the snapshot's liquidity against the cap.
func (w *Watcher) CheckCapacity(ctx context.Context, snap *pool.PoolSnapshot) {
	if snap == nil {
		return
	}
	key := w.fullKey()
	sent := w.dedup.AlreadySent(ctx, key)

	if derive.CapReached(snap.LiquidityUSD, w.capacity) {
		if sent {
			return
		}
		msg := fmt.Sprintf("🚫 <b>%s</b>\n\n%s liquidity %s has reached the %s cap. Deposits are paused.",
			display.LabelVaultFull, snap.Name, display.USD(snap.LiquidityUSD), display.USD(w.capacity))
		if w.send(ctx, "vault_full", msg) {
			if err := w.dedup.Record(ctx, key); err != nil {
				w.logger.Error("record alert", "key", key, "error", err)
			}
		}
		return
	}

	if !sent {
		return
	}
	if err := w.dedup.Clear(ctx, key); err != nil {
		w.logger.Error("clear alert", "key", key, "error", err)
		return
	}
	msg := fmt.Sprintf("✅ <b>Vault reopened</b>\n\n%s liquidity %s is below the %s cap (%s used).",
		snap.Name, display.USD(snap.LiquidityUSD), display.USD(w.capacity),
		display.Percent(derive.CapacityUsed(snap.LiquidityUSD, w.capacity).Value))
	w.send(ctx, "vault_reopened", msg)
}

// DepositSettled announces a confirmed deposit.
func (w *Watcher) DepositSettled(ctx context.Context, r deposit.Receipt) {
	msg := fmt.Sprintf("💰 <b>Deposit settled</b>\n\nWallet: <code>%s</code>\nAmount: %s\nTotal deposited: %s\nTx: <code>%s</code>",
		r.Wallet, display.Amount(r.Amount, "SOL"), display.Amount(r.Total, "SOL"), r.Signature)
	w.send(ctx, "deposit_settled", msg)
}

func (w *Watcher) send(ctx context.Context, kind, msg string) bool {
	if err := w.sender.SendMessage(ctx, w.chatID, msg); err != nil {
		metrics.AlertsFailedTotal.WithLabelValues(kind).Inc()
		w.logger.Error("send alert", "type", kind, "error", err)
		return false
	}
	metrics.AlertsSentTotal.WithLabelValues(kind).Inc()
	w.logger.Info("alert sent", "type", kind)
	return true
}

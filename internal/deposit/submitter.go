// Package deposit validates and submits SOL deposits into the vault and
// records them in the ledger once confirmed.
package deposit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3-frozen/sonic-vault/internal/derive"
	"github.com/web3-frozen/sonic-vault/internal/metrics"
)

// FeeBufferLamports is kept back from the balance to pay the network fee.
const FeeBufferLamports uint64 = 5000

const ledgerWriteTimeout = 10 * time.Second

// ErrNotConnected is returned by wallets that have no key loaded.
var ErrNotConnected = errors.New("wallet not connected")

// Wallet is the signing capability a deposit is made with.
type Wallet interface {
	// Address is the base58 public key, empty when not connected.
	Address() string
	Balance(ctx context.Context) (uint64, error)
	// Transfer broadcasts a transfer and returns its signature.
	Transfer(ctx context.Context, to string, lamports uint64) (string, error)
	Confirm(ctx context.Context, signature string) error
}

// PoolState supplies the vault's current liquidity and gating cap. ok is
// false until the pool has been fetched at least once.
type PoolState interface {
	Capacity() (tvl, capacity float64, ok bool)
}

// Recorder is the ledger write a settled deposit goes through.
type Recorder interface {
	Accumulate(ctx context.Context, wallet string, amount float64) (float64, error)
}

// Notifier is told about every settled deposit.
type Notifier interface {
	DepositSettled(ctx context.Context, r Receipt)
}

// Receipt describes a settled deposit.
type Receipt struct {
	Wallet    string    `json:"wallet"`
	Amount    float64   `json:"amount"`
	Lamports  uint64    `json:"lamports"`
	Signature string    `json:"signature"`
	Total     float64   `json:"total_deposited"`
	SettledAt time.Time `json:"settled_at"`
}

// Status is the last known state of a wallet's deposit.
type Status struct {
	Wallet    string    `json:"wallet"`
	Stage     Stage     `json:"stage"`
	Signature string    `json:"signature,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

type Submitter struct {
	receiver string
	pool     PoolState
	ledger   Recorder
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	status map[string]Status
}

type Option func(*Submitter)

func WithNotifier(n Notifier) Option {
	return func(s *Submitter) { s.notifier = n }
}

// NewSubmitter sends deposits to receiver, the pool's address.
func NewSubmitter(receiver string, pool PoolState, ledger Recorder, logger *slog.Logger, opts ...Option) *Submitter {
	s := &Submitter{
		receiver: receiver,
		pool:     pool,
		ledger:   ledger,
		logger:   logger.With("component", "deposit"),
		now:      time.Now,
		status:   make(map[string]Status),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Status returns the last stage seen for wallet, Ready if none.
func (s *Submitter) Status(wallet string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[wallet]
	if !ok {
		return Status{Wallet: wallet, Stage: Ready}
	}
	return st
}

// Submit deposits amount SOL from w. Only one deposit per wallet may be in
// flight; the ledger is written only after the transfer is confirmed.
func (s *Submitter) Submit(ctx context.Context, w Wallet, amount string) (*Receipt, error) {
	addr := ""
	if w != nil {
		addr = w.Address()
	}
	if addr == "" {
		return nil, s.rejected(reject(RuleWalletNotConnected, "connect a wallet first"))
	}
	if !s.acquire(addr) {
		return nil, s.rejected(reject(RuleDepositInFlight, "wallet %s already has a deposit in progress", addr))
	}

	sol, lamports, err := s.validate(ctx, w, amount)
	if err != nil {
		s.setStatus(addr, Status{Stage: Failed, Error: err.Error()})
		return nil, s.rejected(err)
	}

	log := s.logger.With("wallet", addr, "amount", sol, "lamports", lamports)

	s.setStatus(addr, Status{Stage: Submitting})
	sig, err := w.Transfer(ctx, s.receiver, lamports)
	if err != nil {
		return nil, s.failed(log, addr, &DepositError{Stage: Submitting, Err: err})
	}
	log = log.With("signature", sig)
	log.Info("deposit broadcast")

	s.setStatus(addr, Status{Stage: Confirming, Signature: sig})
	if err := w.Confirm(ctx, sig); err != nil {
		return nil, s.failed(log, addr, &DepositError{Stage: Confirming, Signature: sig, Err: err})
	}

	// The transfer is final; a caller giving up must not skip the write.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
	defer cancel()
	total, err := s.ledger.Accumulate(wctx, addr, sol)
	if err != nil {
		return nil, s.failed(log, addr, &DepositError{Stage: Settled, Signature: sig, Err: err})
	}

	r := Receipt{
		Wallet:    addr,
		Amount:    sol,
		Lamports:  lamports,
		Signature: sig,
		Total:     total,
		SettledAt: s.now(),
	}
	s.setStatus(addr, Status{Stage: Settled, Signature: sig})
	metrics.DepositsTotal.WithLabelValues(string(Settled), "success").Inc()
	metrics.DepositedAmountTotal.Add(sol)
	log.Info("deposit settled", "total", total)

	if s.notifier != nil {
		s.notifier.DepositSettled(wctx, r)
	}
	return &r, nil
}

func (s *Submitter) validate(ctx context.Context, w Wallet, amount string) (float64, uint64, error) {
	sol, lamports, err := ParseAmount(amount)
	if err != nil {
		return 0, 0, err
	}

	tvl, capacity, ok := s.pool.Capacity()
	if !ok {
		return 0, 0, reject(RulePoolUnavailable, "pool data not loaded yet")
	}
	if derive.CapReached(tvl, capacity) {
		return 0, 0, reject(RuleVaultFull, "tvl %.2f has reached cap %.2f", tvl, capacity)
	}

	balance, err := w.Balance(ctx)
	if err != nil {
		return 0, 0, &DepositError{Stage: Validating, Err: err}
	}
	if balance < lamports || balance-lamports < FeeBufferLamports {
		return 0, 0, reject(RuleInsufficientBalance, "balance %d lamports, need %d plus %d for fees",
			balance, lamports, FeeBufferLamports)
	}
	return sol, lamports, nil
}

// ParseAmount converts a decimal SOL string to its value and floor'd
// lamport count.
func ParseAmount(amount string) (float64, uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, 0, reject(RuleInvalidAmount, "%q is not a number", amount)
	}
	if !d.IsPositive() {
		return 0, 0, reject(RuleInvalidAmount, "amount must be positive")
	}
	base := d.Shift(9).Floor()
	if !base.IsPositive() {
		return 0, 0, reject(RuleInvalidAmount, "amount is below one lamport")
	}
	bi := base.BigInt()
	if !bi.IsUint64() {
		return 0, 0, reject(RuleInvalidAmount, "amount is too large")
	}
	return d.InexactFloat64(), bi.Uint64(), nil
}

func (s *Submitter) acquire(addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.status[addr]; ok && st.Stage.InFlight() {
		return false
	}
	s.status[addr] = Status{Wallet: addr, Stage: Validating, UpdatedAt: s.now()}
	return true
}

func (s *Submitter) setStatus(addr string, st Status) {
	st.Wallet = addr
	st.UpdatedAt = s.now()
	s.mu.Lock()
	s.status[addr] = st
	s.mu.Unlock()
}

func (s *Submitter) rejected(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		metrics.DepositsTotal.WithLabelValues(string(Validating), "rejected").Inc()
		s.logger.Info("deposit rejected", "rule", ve.Rule, "reason", ve.Reason)
		return err
	}
	metrics.DepositsTotal.WithLabelValues(string(Validating), "failed").Inc()
	s.logger.Warn("deposit validation failed", "error", err)
	return err
}

func (s *Submitter) failed(log *slog.Logger, addr string, err *DepositError) error {
	s.setStatus(addr, Status{Stage: Failed, Signature: err.Signature, Error: err.Error()})
	metrics.DepositsTotal.WithLabelValues(string(err.Stage), "failed").Inc()
	log.Error("deposit failed", "stage", err.Stage, "error", err.Err)
	return err
}

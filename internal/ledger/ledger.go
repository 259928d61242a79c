package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/web3-frozen/sonic-vault/internal/metrics"
)

// DepositsKey is the single key holding every wallet's cumulative deposit.
const DepositsKey = "meteora-user-deposits"

// ErrInvalidAmount is returned by Accumulate for zero, negative or non-finite amounts.
var ErrInvalidAmount = errors.New("ledger: amount must be a positive finite number")

// StorageError describes ledger content that could not be interpreted.
// It is logged and otherwise treated as "no prior deposits".
type StorageError struct {
	Key    string
	Wallet string // empty when the whole document is unreadable
	Err    error
}

func (e *StorageError) Error() string {
	if e.Wallet != "" {
		return fmt.Sprintf("ledger %s: entry %s: %v", e.Key, e.Wallet, e.Err)
	}
	return fmt.Sprintf("ledger %s: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Ledger maps wallet address to cumulative deposited amount.
type Ledger struct {
	kv     KV
	key    string
	logger *slog.Logger
	mu     sync.Mutex
}

func New(kv KV, logger *slog.Logger) *Ledger {
	return &Ledger{
		kv:     kv,
		key:    DepositsKey,
		logger: logger.With("component", "ledger"),
	}
}

// Deposited returns the cumulative amount for wallet, 0 if it never deposited.
func (l *Ledger) Deposited(ctx context.Context, wallet string) (float64, error) {
	doc, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	return doc[wallet], nil
}

// All returns a copy of the whole ledger document.
func (l *Ledger) All(ctx context.Context) (map[string]float64, error) {
	return l.load(ctx)
}

// Accumulate adds amount to the wallet's entry, creating it if absent, and
// returns the new total.
func (l *Ledger) Accumulate(ctx context.Context, wallet string, amount float64) (float64, error) {
	if wallet == "" {
		return 0, errors.New("ledger: wallet address required")
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.load(ctx)
	if err != nil {
		metrics.LedgerOpsTotal.WithLabelValues("accumulate", "error").Inc()
		return 0, err
	}
	doc[wallet] += amount
	total := doc[wallet]

	b, err := json.Marshal(doc)
	if err != nil {
		metrics.LedgerOpsTotal.WithLabelValues("accumulate", "error").Inc()
		return 0, fmt.Errorf("marshal ledger: %w", err)
	}
	if err := l.kv.Set(ctx, l.key, b); err != nil {
		metrics.LedgerOpsTotal.WithLabelValues("accumulate", "error").Inc()
		return 0, fmt.Errorf("write ledger: %w", err)
	}

	metrics.LedgerOpsTotal.WithLabelValues("accumulate", "ok").Inc()
	l.logger.Info("deposit recorded", "wallet", wallet, "amount", amount, "total", total)
	return total, nil
}

// load reads and decodes the document. Only backend failures are returned;
// malformed content degrades to an empty or partial document.
func (l *Ledger) load(ctx context.Context) (map[string]float64, error) {
	raw, err := l.kv.Get(ctx, l.key)
	if errors.Is(err, ErrKeyNotFound) {
		return map[string]float64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	doc, problems := decode(l.key, raw)
	for _, p := range problems {
		metrics.LedgerOpsTotal.WithLabelValues("load", "malformed").Inc()
		l.logger.Warn("ignoring malformed ledger data", "error", p)
	}
	return doc, nil
}

// decode parses the stored document leniently. Entries may be numbers or
// numeric strings; anything else is dropped and reported.
func decode(key string, raw []byte) (map[string]float64, []*StorageError) {
	doc := make(map[string]float64)

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return doc, []*StorageError{{Key: key, Err: err}}
	}

	var problems []*StorageError
	for wallet, v := range entries {
		amount, err := parseEntry(v)
		if err != nil {
			problems = append(problems, &StorageError{Key: key, Wallet: wallet, Err: err})
			continue
		}
		doc[wallet] = amount
	}
	return doc, problems
}

func parseEntry(v json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		var s string
		if err2 := json.Unmarshal(v, &s); err2 != nil {
			return 0, fmt.Errorf("not a number: %s", string(v))
		}
		f, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", s)
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("out of range: %v", f)
	}
	return f, nil
}

// Package wallet provides the signing capability deposits are made with.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/web3-frozen/sonic-vault/internal/deposit"
)

const DefaultRPCURL = "https://api.devnet.solana.com"

const (
	defaultPollInterval   = 500 * time.Millisecond
	defaultConfirmTimeout = 90 * time.Second
)

// ErrNoKey is returned by LoadKey when neither source is configured.
var ErrNoKey = errors.New("no wallet key configured")

// LoadKey reads a keypair from a base58 secret, falling back to a
// solana-keygen JSON file.
func LoadKey(secret, keypairPath string) (solana.PrivateKey, error) {
	if s := strings.TrimSpace(secret); s != "" {
		pk, err := solana.PrivateKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("decode base58 wallet key: %w", err)
		}
		return pk, nil
	}
	if keypairPath != "" {
		pk, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
		if err != nil {
			return nil, fmt.Errorf("read keypair %s: %w", keypairPath, err)
		}
		return pk, nil
	}
	return nil, ErrNoKey
}

// Solana signs and sends plain system transfers through an RPC node.
type Solana struct {
	rpc    *rpc.Client
	key    solana.PrivateKey
	pub    solana.PublicKey
	logger *slog.Logger

	pollInterval   time.Duration
	confirmTimeout time.Duration
}

var _ deposit.Wallet = (*Solana)(nil)

func NewSolana(rpcURL string, key solana.PrivateKey, logger *slog.Logger) *Solana {
	if rpcURL == "" {
		rpcURL = DefaultRPCURL
	}
	return &Solana{
		rpc:            rpc.New(rpcURL),
		key:            key,
		pub:            key.PublicKey(),
		logger:         logger.With("component", "wallet"),
		pollInterval:   defaultPollInterval,
		confirmTimeout: defaultConfirmTimeout,
	}
}

func (s *Solana) Address() string { return s.pub.String() }

func (s *Solana) Balance(ctx context.Context) (uint64, error) {
	res, err := s.rpc.GetBalance(ctx, s.pub, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return res.Value, nil
}

// Transfer builds, signs and broadcasts a system transfer of lamports to to.
func (s *Solana) Transfer(ctx context.Context, to string, lamports uint64) (string, error) {
	dest, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("receiver address %q: %w", to, err)
	}

	recent, err := s.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, s.pub, dest).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(s.pub),
	)
	if err != nil {
		return "", fmt.Errorf("build transfer: %w", err)
	}

	if _, err := tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(s.pub) {
			return &s.key
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transfer: %w", err)
	}

	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("send transfer: %w", err)
	}
	s.logger.Info("transfer sent", "to", to, "lamports", lamports, "signature", sig.String())
	return sig.String(), nil
}

// Confirm polls the signature until it is confirmed or finalized, fails on
// chain or the timeout elapses.
func (s *Solana) Confirm(ctx context.Context, signature string) error {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("signature %q: %w", signature, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		res, err := s.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("signature status lookup failed", "signature", signature, "error", err)
		}
		if err == nil && res != nil && len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if st.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", signature, st.Err)
			}
			switch st.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirm %s: %w", signature, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Disconnected is the wallet used when no key is configured.
type Disconnected struct{}

var _ deposit.Wallet = Disconnected{}

func (Disconnected) Address() string { return "" }

func (Disconnected) Balance(context.Context) (uint64, error) { return 0, deposit.ErrNotConnected }

func (Disconnected) Transfer(context.Context, string, uint64) (string, error) {
	return "", deposit.ErrNotConnected
}

func (Disconnected) Confirm(context.Context, string) error { return deposit.ErrNotConnected }

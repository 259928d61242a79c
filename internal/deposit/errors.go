package deposit

import "fmt"

// Stage is a step of the deposit lifecycle.
type Stage string

const (
	Ready      Stage = "ready"
	Validating Stage = "validating"
	Submitting Stage = "submitting"
	Confirming Stage = "confirming"
	Settled    Stage = "settled"
	Failed     Stage = "failed"
)

// InFlight reports whether a deposit at this stage still blocks new ones.
func (s Stage) InFlight() bool {
	return s == Validating || s == Submitting || s == Confirming
}

// Rule names the precondition a rejected deposit violated.
type Rule string

const (
	RuleWalletNotConnected  Rule = "wallet_not_connected"
	RuleInvalidAmount       Rule = "invalid_amount"
	RuleVaultFull           Rule = "vault_full"
	RulePoolUnavailable     Rule = "pool_unavailable"
	RuleInsufficientBalance Rule = "insufficient_balance"
	RuleDepositInFlight     Rule = "deposit_in_flight"
)

// ValidationError is returned before any transfer is attempted.
type ValidationError struct {
	Rule   Rule
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("deposit rejected: %s", e.Rule)
	}
	return fmt.Sprintf("deposit rejected: %s: %s", e.Rule, e.Reason)
}

func reject(rule Rule, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// DepositError reports a failure after validation passed. Signature is set
// once the transfer was broadcast.
type DepositError struct {
	Stage     Stage
	Signature string
	Err       error
}

func (e *DepositError) Error() string {
	if e.Signature != "" {
		return fmt.Sprintf("deposit failed at %s (tx %s): %v", e.Stage, e.Signature, e.Err)
	}
	return fmt.Sprintf("deposit failed at %s: %v", e.Stage, e.Err)
}

func (e *DepositError) Unwrap() error { return e.Err }

// Package derive turns raw pool snapshots and price quotes into the numbers
// the dashboard shows. Every function is pure: same inputs, same outputs.
package derive

import (
	"math"

	"github.com/web3-frozen/sonic-vault/internal/pool"
)

// BaseUnitScale converts raw reserves to token units. Both SOL and SONIC
// use 9 decimals; decimals are not queried on-chain.
const BaseUnitScale = 1e9

// HealthyRatio is the collateral ratio at or above which the pool is labeled healthy.
const HealthyRatio = 150.0

// Health labels for the collateral ratio card.
const (
	HealthHealthy     = "Healthy"
	HealthMonitor     = "Monitor"
	HealthUnavailable = "Unavailable"
)

// Ratio is a percentage that may be undefined (division by zero, missing
// prices). Value is 0 whenever Available is false.
type Ratio struct {
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
}

func newRatio(num, den float64) Ratio {
	if den <= 0 || !finite(num) || !finite(den) {
		return Ratio{}
	}
	v := num / den * 100
	if !finite(v) {
		return Ratio{}
	}
	return Ratio{Value: v, Available: true}
}

// Health labels the ratio for display.
func (r Ratio) Health() string {
	switch {
	case !r.Available:
		return HealthUnavailable
	case r.Value >= HealthyRatio:
		return HealthHealthy
	}
	return HealthMonitor
}

// DerivedMetrics is the summary card set, recomputed every refresh.
type DerivedMetrics struct {
	TVLUSD          float64 `json:"tvl_usd"`
	SolInPool       float64 `json:"sol_in_pool"`
	TokenInPool     float64 `json:"token_in_pool"`
	SolValueUSD     float64 `json:"sol_value_usd"`
	TokenValueUSD   float64 `json:"token_value_usd"`
	CollateralRatio Ratio   `json:"collateral_ratio"`
}

// UserPosition is a wallet's view of its deposits. Only DepositedAmount is
// persisted; the rest is derived on demand.
type UserPosition struct {
	DepositedAmount float64 `json:"deposited_amount"`
	CurrentValue    float64 `json:"current_value"`
	EarnedFees      float64 `json:"earned_fees"`
}

// Normalize converts a raw base-unit amount to token units.
func Normalize(raw float64) float64 {
	if !finite(raw) || raw <= 0 {
		return 0
	}
	return raw / BaseUnitScale
}

// Compute derives every summary metric from one snapshot and quote.
func Compute(snap *pool.PoolSnapshot, quote pool.PriceQuote) DerivedMetrics {
	if snap == nil {
		return DerivedMetrics{}
	}
	sol := Normalize(snap.ReserveY)
	token := Normalize(snap.ReserveX)
	solValue := clampValue(sol * price(quote, pool.SolanaID))
	tokenValue := clampValue(token * price(quote, pool.SonicID))
	return DerivedMetrics{
		TVLUSD:          clampValue(solValue + tokenValue),
		SolInPool:       sol,
		TokenInPool:     token,
		SolValueUSD:     solValue,
		TokenValueUSD:   tokenValue,
		CollateralRatio: newRatio(tokenValue, solValue),
	}
}

// ComputeTVLUSD is the USD value of both reserves.
func ComputeTVLUSD(snap *pool.PoolSnapshot, quote pool.PriceQuote) float64 {
	return Compute(snap, quote).TVLUSD
}

// ComputeCollateralRatio is tokenValue / solValue × 100, unavailable when the
// SOL side is worth nothing.
func ComputeCollateralRatio(snap *pool.PoolSnapshot, quote pool.PriceQuote) Ratio {
	return Compute(snap, quote).CollateralRatio
}

// ComputeMinimumReceived applies the slippage discount to a prospective
// deposit. Negative inputs are treated as 0 and slippage above 100% yields 0.
func ComputeMinimumReceived(amount, slippagePercent float64) float64 {
	if !finite(amount) || amount <= 0 {
		return 0
	}
	if !finite(slippagePercent) || slippagePercent < 0 {
		slippagePercent = 0
	}
	v := amount * (1 - slippagePercent/100)
	if v < 0 {
		return 0
	}
	return v
}

// ComputeDepositValueUSD prices a prospective deposit at the LP price, or 0
// when the pool did not report one.
func ComputeDepositValueUSD(amount float64, snap *pool.PoolSnapshot) float64 {
	if !snap.LPPriceAvailable() || !finite(amount) || amount <= 0 {
		return 0
	}
	return clampValue(amount * snap.LPPriceUSD)
}

// ComputePosition values the deposited amount at the current LP price. Without
// an LP price the deposit is shown at face value with no earnings.
func ComputePosition(deposited float64, snap *pool.PoolSnapshot) UserPosition {
	if !finite(deposited) || deposited < 0 {
		deposited = 0
	}
	if !snap.LPPriceAvailable() {
		return UserPosition{DepositedAmount: deposited, CurrentValue: deposited}
	}
	return UserPosition{
		DepositedAmount: deposited,
		CurrentValue:    deposited * snap.LPPriceUSD,
		EarnedFees:      deposited * (snap.LPPriceUSD - 1),
	}
}

// CapacityUsed is liquidity / cap as a percentage.
func CapacityUsed(tvl, capacity float64) Ratio {
	return newRatio(tvl, capacity)
}

// CapReached reports whether the vault is full. A non-positive cap is
// treated as no capacity at all.
func CapReached(tvl, capacity float64) bool {
	return capacity <= 0 || tvl >= capacity
}

func price(q pool.PriceQuote, id string) float64 {
	p := q.Price(id)
	if !finite(p) || p < 0 {
		return 0
	}
	return p
}

func clampValue(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

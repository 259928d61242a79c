package dashboard

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/web3-frozen/sonic-vault/internal/derive"
	"github.com/web3-frozen/sonic-vault/internal/display"
	"github.com/web3-frozen/sonic-vault/internal/pool"
)

const (
	SolSymbol   = "SOL"
	TokenSymbol = "SONIC"
)

// SlippagePresets are the slippage choices offered for a deposit.
var SlippagePresets = []float64{0.5, 1, 2, 5}

const DefaultSlippage = 0.5

// Summary is the headline panel. Text fields read display.Loading until the
// first refresh succeeds.
type Summary struct {
	Loading         bool                   `json:"loading"`
	Name            string                 `json:"name"`
	TVL             string                 `json:"tvl"`
	APY             string                 `json:"apy"`
	Volume24h       string                 `json:"volume_24h"`
	SolInPool       string                 `json:"sol_in_pool"`
	TokenInPool     string                 `json:"token_in_pool"`
	CollateralRatio string                 `json:"collateral_ratio"`
	Health          string                 `json:"health"`
	Prices          map[string]float64     `json:"prices,omitempty"`
	Metrics         *derive.DerivedMetrics `json:"metrics,omitempty"`
	UpdatedAt       time.Time              `json:"updated_at,omitzero"`
	LastError       string                 `json:"last_error,omitempty"`
}

func (d *Dashboard) Summary() Summary {
	st := d.summary.Status()
	s, ok := d.summary.Current()
	if !ok {
		return Summary{
			Loading:         true,
			Name:            pool.DefaultName,
			TVL:             display.Loading,
			APY:             display.Loading,
			Volume24h:       display.Loading,
			SolInPool:       display.Loading,
			TokenInPool:     display.Loading,
			CollateralRatio: display.Loading,
			Health:          display.Loading,
			LastError:       st.LastError,
		}
	}

	m := s.Metrics
	ratio := display.Unavailable
	if m.CollateralRatio.Available {
		ratio = display.Percent(m.CollateralRatio.Value)
	}
	return Summary{
		Name:            s.Snapshot.Name,
		TVL:             display.USD(m.TVLUSD),
		APY:             display.Percent(s.Snapshot.APYPercent),
		Volume24h:       display.USD(s.Snapshot.TradingVolume24h),
		SolInPool:       display.Amount(m.SolInPool, SolSymbol),
		TokenInPool:     display.Amount(m.TokenInPool, TokenSymbol),
		CollateralRatio: ratio,
		Health:          m.CollateralRatio.Health(),
		Prices:          map[string]float64(s.Quote),
		Metrics:         &m,
		UpdatedAt:       st.UpdatedAt,
		LastError:       st.LastError,
	}
}

// APR is the reward breakdown of the detail panel.
type APR struct {
	Trade      string `json:"trade"`
	Yield      string `json:"yield"`
	WeeklyBase string `json:"weekly_base"`
}

// PoolDetail is the expanded pool panel.
type PoolDetail struct {
	Loading      bool               `json:"loading"`
	Name         string             `json:"name"`
	Liquidity    string             `json:"liquidity"`
	APY          string             `json:"apy"`
	APR          APR                `json:"apr"`
	BaseFee      string             `json:"base_fee"`
	Volume24h    string             `json:"volume_24h"`
	Fees24h      string             `json:"fees_24h"`
	LPPrice      string             `json:"lp_price"`
	PoolCap      string             `json:"pool_cap"`
	VaultCap     string             `json:"vault_cap"`
	CapacityUsed string             `json:"capacity_used"`
	VaultFull    bool               `json:"vault_full"`
	Snapshot     *pool.PoolSnapshot `json:"snapshot,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at,omitzero"`
	LastError    string             `json:"last_error,omitempty"`
}

func (d *Dashboard) PoolDetail() PoolDetail {
	st := d.detail.Status()
	snap, ok := d.detail.Current()
	if !ok || snap == nil {
		return PoolDetail{
			Loading:      true,
			Name:         pool.DefaultName,
			Liquidity:    display.Loading,
			APY:          display.Loading,
			APR:          APR{Trade: display.Loading, Yield: display.Loading, WeeklyBase: display.Loading},
			BaseFee:      display.Loading,
			Volume24h:    display.Loading,
			Fees24h:      display.Loading,
			LPPrice:      display.Loading,
			PoolCap:      display.Loading,
			VaultCap:     display.USD(d.capacity),
			CapacityUsed: display.Loading,
			LastError:    st.LastError,
		}
	}

	lp := display.Unavailable
	if snap.LPPriceAvailable() {
		lp = display.USD(snap.LPPriceUSD)
	}
	used := display.Unavailable
	if r := derive.CapacityUsed(snap.LiquidityUSD, d.capacity); r.Available {
		used = display.Percent(r.Value)
	}
	return PoolDetail{
		Name:      snap.Name,
		Liquidity: display.USD(snap.LiquidityUSD),
		APY:       display.Percent(snap.APYPercent),
		APR: APR{
			Trade:      display.Percent(snap.APR.Trade),
			Yield:      display.Percent(snap.APR.Yield),
			WeeklyBase: display.Percent(snap.APR.WeeklyBase),
		},
		BaseFee:      display.Percent(snap.BaseFeePercent),
		Volume24h:    display.USD(snap.TradingVolume24h),
		Fees24h:      display.USD(snap.FeeVolume24h),
		LPPrice:      lp,
		PoolCap:      "$" + display.Compact(snap.Cap),
		VaultCap:     display.USD(d.capacity),
		CapacityUsed: used,
		VaultFull:    derive.CapReached(snap.LiquidityUSD, d.capacity),
		Snapshot:     snap,
		UpdatedAt:    st.UpdatedAt,
		LastError:    st.LastError,
	}
}

// Position is a wallet's holding in the vault.
type Position struct {
	Wallet       string              `json:"wallet"`
	Deposited    string              `json:"deposited"`
	CurrentValue string              `json:"current_value"`
	EarnedFees   string              `json:"earned_fees"`
	Raw          derive.UserPosition `json:"raw"`
}

func (d *Dashboard) Position(ctx context.Context, wallet string) (Position, error) {
	dep, err := d.positions.Deposited(ctx, wallet)
	if err != nil {
		return Position{}, fmt.Errorf("position for %s: %w", wallet, err)
	}
	p := derive.ComputePosition(dep, d.latestSnapshot())
	return Position{
		Wallet:       wallet,
		Deposited:    display.Amount(p.DepositedAmount, SolSymbol),
		CurrentValue: display.USD(p.CurrentValue),
		EarnedFees:   display.USD(p.EarnedFees),
		Raw:          p,
	}, nil
}

// Quote previews a deposit before it is submitted.
type Quote struct {
	Amount          float64   `json:"amount"`
	Slippage        float64   `json:"slippage"`
	MinimumReceived float64   `json:"minimum_received"`
	ValueUSD        float64   `json:"value_usd"`
	Presets         []float64 `json:"slippage_presets"`
	MinimumText     string    `json:"minimum_received_text"`
	ValueText       string    `json:"value_usd_text"`
	VaultFull       bool      `json:"vault_full"`
}

func (d *Dashboard) Quote(amount, slippage float64) Quote {
	minimum := derive.ComputeMinimumReceived(amount, slippage)
	value := derive.ComputeDepositValueUSD(amount, d.latestSnapshot())
	return Quote{
		Amount:          amount,
		Slippage:        slippage,
		MinimumReceived: minimum,
		ValueUSD:        value,
		Presets:         slices.Clone(SlippagePresets),
		MinimumText:     display.Amount(minimum, SolSymbol),
		ValueText:       display.USD(value),
		VaultFull:       d.VaultFull(),
	}
}

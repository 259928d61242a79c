package pool

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultName is used when the pool API omits the pool name.
const DefaultName = "SONIC-SOL"

// Price oracle ids for the two pool tokens.
const (
	SolanaID = "solana"
	SonicID  = "sonic"
)

// APRBreakdown splits the headline yield into its sources.
type APRBreakdown struct {
	Trade      float64 `json:"trade"`
	Yield      float64 `json:"yield"`
	WeeklyBase float64 `json:"weekly_base"`
}

// PoolSnapshot is one normalized reading of the pool API. It is replaced
// wholesale on every refresh and never mutated. ReserveX holds SONIC and
// ReserveY holds SOL, both in raw base units.
type PoolSnapshot struct {
	Name             string       `json:"name"`
	LiquidityUSD     float64      `json:"liquidity_usd"`
	APYPercent       float64      `json:"apy_percent"`
	TradingVolume24h float64      `json:"trading_volume_24h"`
	FeeVolume24h     float64      `json:"fee_volume_24h"`
	ReserveX         float64      `json:"reserve_x"`
	ReserveY         float64      `json:"reserve_y"`
	LPPriceUSD       float64      `json:"lp_price_usd"`
	APR              APRBreakdown `json:"apr"`
	BaseFeePercent   float64      `json:"base_fee_percent"`
	Cap              float64      `json:"cap"`
	FetchedAt        time.Time    `json:"fetched_at"`
}

// LPPriceAvailable reports whether the pool returned a usable LP price.
func (s *PoolSnapshot) LPPriceAvailable() bool {
	return s != nil && s.LPPriceUSD > 0
}

// PriceQuote maps an oracle id to a USD price.
type PriceQuote map[string]float64

// Price returns the USD price for id, or 0 when unknown.
func (q PriceQuote) Price(id string) float64 {
	if q == nil {
		return 0
	}
	return q[id]
}

// Number decodes a JSON number, numeric string or null. Anything that does
// not parse to a finite value becomes 0.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
	} else {
		s = string(b)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*n = 0
		return nil
	}
	*n = Number(v)
	return nil
}

// poolResponse mirrors GET {base}/{pool_id}. Every field is optional.
type poolResponse struct {
	Name           string `json:"name"`
	Liquidity      Number `json:"liquidity"`
	APY            Number `json:"apy"`
	TradeVolume24h Number `json:"trade_volume_24h"`
	Fees24h        Number `json:"fees_24h"`
	ReserveX       Number `json:"reserve_x_amount"`
	ReserveY       Number `json:"reserve_y_amount"`
	CurrentPrice   Number `json:"current_price"`
	APR            Number `json:"apr"`
	BaseFeePercent Number `json:"base_fee_percentage"`
	Cap            Number `json:"cap"`
}

func (r *poolResponse) snapshot(now time.Time) *PoolSnapshot {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = DefaultName
	}
	apy := float64(r.APY)
	lp := float64(r.CurrentPrice)
	if lp < 0 {
		lp = 0
	}
	return &PoolSnapshot{
		Name:             name,
		LiquidityUSD:     float64(r.Liquidity),
		APYPercent:       apy,
		TradingVolume24h: float64(r.TradeVolume24h),
		FeeVolume24h:     float64(r.Fees24h),
		ReserveX:         nonNegative(float64(r.ReserveX)),
		ReserveY:         nonNegative(float64(r.ReserveY)),
		LPPriceUSD:       lp,
		APR: APRBreakdown{
			Trade:      float64(r.APR),
			Yield:      apy,
			WeeklyBase: apy,
		},
		BaseFeePercent: float64(r.BaseFeePercent),
		Cap:            nonNegative(float64(r.Cap)),
		FetchedAt:      now,
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// priceResponse mirrors { "<id>": { "usd": <number> } }.
type priceResponse map[string]struct {
	USD Number `json:"usd"`
}

// Package dashboard assembles pool data, prices and ledger positions into
// the views served by the API.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/web3-frozen/sonic-vault/internal/derive"
	"github.com/web3-frozen/sonic-vault/internal/metrics"
	"github.com/web3-frozen/sonic-vault/internal/pool"
	"github.com/web3-frozen/sonic-vault/internal/refresh"
)

// DefaultCap is the vault's gating capacity in USD.
const DefaultCap = 100_000.0

// Source fetches raw pool and price data.
type Source interface {
	FetchPoolSnapshot(ctx context.Context) (*pool.PoolSnapshot, error)
	FetchPriceQuote(ctx context.Context, ids ...string) (pool.PriceQuote, error)
}

// Positions reads cumulative deposits per wallet.
type Positions interface {
	Deposited(ctx context.Context, wallet string) (float64, error)
}

// SummaryState is one refresh of the summary panel.
type SummaryState struct {
	Snapshot *pool.PoolSnapshot
	Quote    pool.PriceQuote
	Metrics  derive.DerivedMetrics
}

type Config struct {
	Cap             float64
	SummaryInterval time.Duration
	DetailInterval  time.Duration
}

type Dashboard struct {
	src       Source
	positions Positions
	capacity  float64
	logger    *slog.Logger

	summary *refresh.Loop[SummaryState]
	detail  *refresh.Loop[*pool.PoolSnapshot]
}

type Option func(*options)

type options struct {
	onDetail []func(*pool.PoolSnapshot)
}

// OnDetail registers fn to receive every successful pool detail refresh.
func OnDetail(fn func(*pool.PoolSnapshot)) Option {
	return func(o *options) { o.onDetail = append(o.onDetail, fn) }
}

func New(src Source, positions Positions, cfg Config, logger *slog.Logger, opts ...Option) *Dashboard {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Cap <= 0 {
		cfg.Cap = DefaultCap
	}
	if cfg.SummaryInterval <= 0 {
		cfg.SummaryInterval = refresh.SummaryInterval
	}
	if cfg.DetailInterval <= 0 {
		cfg.DetailInterval = refresh.DetailInterval
	}

	d := &Dashboard{
		src:       src,
		positions: positions,
		capacity:  cfg.Cap,
		logger:    logger.With("component", "dashboard"),
	}
	d.summary = refresh.New("summary", cfg.SummaryInterval, d.fetchSummary, logger,
		refresh.OnUpdate(d.recordMetrics))
	d.detail = refresh.New("detail", cfg.DetailInterval, d.fetchDetail, logger,
		refresh.OnUpdate(func(s *pool.PoolSnapshot) {
			for _, fn := range o.onDetail {
				fn(s)
			}
		}))
	return d
}

// Cap is the configured gating capacity.
func (d *Dashboard) Cap() float64 { return d.capacity }

// Handle stops both refresh loops.
type Handle struct {
	handles []*refresh.Handle
}

func (h *Handle) Stop() {
	for _, rh := range h.handles {
		rh.Stop()
	}
}

// Start launches the summary and detail loops.
func (d *Dashboard) Start(ctx context.Context) *Handle {
	return &Handle{handles: []*refresh.Handle{
		d.summary.Start(ctx),
		d.detail.Start(ctx),
	}}
}

// Refresh runs both fetches once, for callers that do not start the loops.
func (d *Dashboard) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := d.summary.Refresh(ctx)
		return err
	})
	g.Go(func() error {
		_, err := d.detail.Refresh(ctx)
		return err
	})
	return g.Wait()
}

// Loops reports the status of each refresh loop.
func (d *Dashboard) Loops() []refresh.Status {
	return []refresh.Status{d.summary.Status(), d.detail.Status()}
}

// Ready is true once both panels have data.
func (d *Dashboard) Ready() bool {
	_, s := d.summary.Current()
	_, p := d.detail.Current()
	return s && p
}

// Capacity reports the freshest known liquidity against the gating cap.
func (d *Dashboard) Capacity() (tvl, capacity float64, ok bool) {
	snap := d.latestSnapshot()
	if snap == nil {
		return 0, d.capacity, false
	}
	return snap.LiquidityUSD, d.capacity, true
}

func (d *Dashboard) VaultFull() bool {
	tvl, capacity, ok := d.Capacity()
	return ok && derive.CapReached(tvl, capacity)
}

func (d *Dashboard) latestSnapshot() *pool.PoolSnapshot {
	var latest *pool.PoolSnapshot
	if s, ok := d.summary.Current(); ok {
		latest = s.Snapshot
	}
	if p, ok := d.detail.Current(); ok && p != nil {
		if latest == nil || p.FetchedAt.After(latest.FetchedAt) {
			latest = p
		}
	}
	return latest
}

func (d *Dashboard) fetchSummary(ctx context.Context) (SummaryState, error) {
	var (
		snap  *pool.PoolSnapshot
		quote pool.PriceQuote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = d.src.FetchPoolSnapshot(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		quote, err = d.src.FetchPriceQuote(gctx, pool.SolanaID, pool.SonicID)
		return err
	})
	if err := g.Wait(); err != nil {
		return SummaryState{}, fmt.Errorf("summary refresh: %w", err)
	}
	return SummaryState{
		Snapshot: snap,
		Quote:    quote,
		Metrics:  derive.Compute(snap, quote),
	}, nil
}

func (d *Dashboard) fetchDetail(ctx context.Context) (*pool.PoolSnapshot, error) {
	snap, err := d.src.FetchPoolSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("detail refresh: %w", err)
	}
	return snap, nil
}

func (d *Dashboard) recordMetrics(s SummaryState) {
	m := s.Metrics
	metrics.PoolMetricValue.WithLabelValues("tvl_usd").Set(m.TVLUSD)
	metrics.PoolMetricValue.WithLabelValues("sol_in_pool").Set(m.SolInPool)
	metrics.PoolMetricValue.WithLabelValues("token_in_pool").Set(m.TokenInPool)
	if m.CollateralRatio.Available {
		metrics.PoolMetricValue.WithLabelValues("collateral_ratio").Set(m.CollateralRatio.Value)
	}
	if s.Snapshot != nil {
		metrics.PoolMetricValue.WithLabelValues("liquidity_usd").Set(s.Snapshot.LiquidityUSD)
		metrics.PoolMetricValue.WithLabelValues("apy_percent").Set(s.Snapshot.APYPercent)
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonic_vault",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sonic_vault",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sonic_vault",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Refresh loop metrics ───────────────────────────────────────────────

var (
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonic_vault",
		Subsystem: "refresh",
		Name:      "total",
		Help:      "Total number of refresh attempts per loop.",
	}, []string{"loop", "status"})

	RefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sonic_vault",
		Subsystem: "refresh",
		Name:      "duration_seconds",
		Help:      "Duration of a refresh fetch per loop in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"loop"})

	RefreshSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonic_vault",
		Subsystem: "refresh",
		Name:      "skipped_total",
		Help:      "Ticks dropped because the previous fetch was still running.",
	}, []string{"loop"})

	RefreshLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sonic_vault",
		Subsystem: "refresh",
		Name:      "last_success_timestamp",
		Help:      "Unix timestamp of the last successful refresh per loop.",
	}, []string{"loop"})
)

// ── Upstream API metrics ───────────────────────────────────────────────

var (
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonic_vault",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Requests to the pool and price APIs.",
	}, []string{"endpoint", "status"})
)

// ── Deposit and ledger metrics ─────────────────────────────────────────

var (
	DepositsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonic_vault",
		Subsystem: "deposit",
		Name:      "total",
		Help:      "Deposit attempts by final stage and outcome.",
	}, []string{"stage", "outcome"})

	DepositedAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sonic_vault",
		Subsystem: "deposit",
		Name:      "amount_total",
		Help:      "Sum of settled deposit amounts in SOL.",
	})

	LedgerOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonic_vault",
		Subsystem: "ledger",
		Name:      "ops_total",
		Help:      "Ledger operations by kind and result.",
	}, []string{"op", "result"})

	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonic_vault",
		Subsystem: "alerts",
		Name:      "sent_total",
		Help:      "Total alerts successfully delivered.",
	}, []string{"type"})

	AlertsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonic_vault",
		Subsystem: "alerts",
		Name:      "failed_total",
		Help:      "Total alert delivery failures.",
	}, []string{"type"})
)

// ── Business metrics ───────────────────────────────────────────────────

var (
	PoolMetricValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sonic_vault",
		Subsystem: "business",
		Name:      "pool_metric_value",
		Help:      "Latest value of a derived pool metric.",
	}, []string{"metric_name"})
)

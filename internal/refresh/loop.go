// Package refresh runs a fetch on a fixed interval and keeps the latest
// successful result.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/web3-frozen/sonic-vault/internal/metrics"
)

// Default intervals for the two dashboard panels.
const (
	SummaryInterval = 30 * time.Second
	DetailInterval  = 60 * time.Second
)

// Phase is the loop's fetch state.
type Phase string

const (
	Idle     Phase = "idle"
	Fetching Phase = "fetching"
)

// FetchFunc produces a fresh state. It must honour ctx cancellation.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Status describes a loop for health endpoints.
type Status struct {
	Name      string    `json:"name"`
	Phase     Phase     `json:"phase"`
	Interval  string    `json:"interval"`
	HasData   bool      `json:"has_data"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	Skipped   int64     `json:"skipped_ticks"`
}

// Loop owns one state slot. Ticks that fire while a fetch is still running
// are dropped, so results are applied in the order fetches started.
type Loop[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	onUpdate func(T)
	logger   *slog.Logger

	fetching atomic.Bool
	skipped  atomic.Int64

	mu        sync.RWMutex
	gen       uint64
	state     T
	hasData   bool
	updatedAt time.Time
	lastErr   error
}

type Option[T any] func(*Loop[T])

// OnUpdate registers fn to run after every successful state replacement.
func OnUpdate[T any](fn func(T)) Option[T] {
	return func(l *Loop[T]) { l.onUpdate = fn }
}

func New[T any](name string, interval time.Duration, fetch FetchFunc[T], logger *slog.Logger, opts ...Option[T]) *Loop[T] {
	if interval <= 0 {
		interval = SummaryInterval
	}
	l := &Loop[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		logger:   logger.With("component", "refresh", "loop", name),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loop[T]) Name() string { return l.name }

func (l *Loop[T]) Interval() time.Duration { return l.interval }

// Current returns the latest state and whether any fetch has succeeded yet.
func (l *Loop[T]) Current() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.hasData
}

func (l *Loop[T]) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Status{
		Name:      l.name,
		Phase:     Idle,
		Interval:  l.interval.String(),
		HasData:   l.hasData,
		UpdatedAt: l.updatedAt,
		Skipped:   l.skipped.Load(),
	}
	if l.fetching.Load() {
		s.Phase = Fetching
	}
	if l.lastErr != nil {
		s.LastError = l.lastErr.Error()
	}
	return s
}

// Handle stops a running loop.
type Handle struct {
	cancel context.CancelFunc
	wg     *sync.WaitGroup
	once   sync.Once
}

// Stop cancels the in-flight fetch, stops the ticker and waits for both to
// exit. Results that arrive after Stop are discarded. Safe to call twice.
func (h *Handle) Stop() {
	h.once.Do(func() {
		h.cancel()
		h.wg.Wait()
	})
}

// Start fetches once immediately and then on every tick until ctx is done
// or the returned handle is stopped.
func (l *Loop[T]) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	wg := &sync.WaitGroup{}
	h := &Handle{cancel: cancel, wg: wg}

	wg.Add(1)
	go func() {
		defer wg.Done()

		l.trigger(ctx, gen, wg)

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.trigger(ctx, gen, wg)
			}
		}
	}()

	l.logger.Info("refresh loop started", "interval", l.interval.String())
	return h
}

// Refresh runs one fetch synchronously, honouring the same idle gate as
// the ticker. It reports false when a fetch was already running.
func (l *Loop[T]) Refresh(ctx context.Context) (bool, error) {
	if !l.fetching.CompareAndSwap(false, true) {
		l.skip()
		return false, nil
	}
	defer l.fetching.Store(false)

	l.mu.RLock()
	gen := l.gen
	l.mu.RUnlock()

	return true, l.run(ctx, gen)
}

func (l *Loop[T]) trigger(ctx context.Context, gen uint64, wg *sync.WaitGroup) {
	if !l.fetching.CompareAndSwap(false, true) {
		l.skip()
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer l.fetching.Store(false)
		_ = l.run(ctx, gen)
	}()
}

func (l *Loop[T]) skip() {
	l.skipped.Add(1)
	metrics.RefreshSkippedTotal.WithLabelValues(l.name).Inc()
	l.logger.Debug("tick skipped, fetch still in flight")
}

func (l *Loop[T]) run(ctx context.Context, gen uint64) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh %s panicked: %v", l.name, r)
		}
		metrics.RefreshDuration.WithLabelValues(l.name).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.RefreshTotal.WithLabelValues(l.name, "error").Inc()
			l.fail(gen, err)
		}
	}()

	state, err := l.fetch(ctx)
	if err != nil {
		return err
	}

	if !l.apply(ctx, gen, state) {
		l.logger.Debug("discarding result of stopped loop")
		return nil
	}

	metrics.RefreshTotal.WithLabelValues(l.name, "success").Inc()
	metrics.RefreshLastSuccess.WithLabelValues(l.name).SetToCurrentTime()
	if l.onUpdate != nil {
		l.onUpdate(state)
	}
	return nil
}

func (l *Loop[T]) apply(ctx context.Context, gen uint64, state T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ctx.Err() != nil || gen != l.gen {
		return false
	}
	l.state = state
	l.hasData = true
	l.updatedAt = time.Now()
	l.lastErr = nil
	return true
}

// fail records err but keeps the previous state.
func (l *Loop[T]) fail(gen uint64, err error) {
	l.mu.Lock()
	if gen == l.gen {
		l.lastErr = err
	}
	hasData := l.hasData
	l.mu.Unlock()
	l.logger.Error("refresh failed, keeping last state", "error", err, "has_data", hasData)
}

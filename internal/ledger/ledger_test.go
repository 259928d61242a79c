package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAccumulateRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := New(NewMemoryKV(), testLogger())

	total, err := l.Accumulate(ctx, "walletA", 0.25)
	require.NoError(t, err)
	assert.Equal(t, 0.25, total)

	total, err = l.Accumulate(ctx, "walletA", 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.75, total)

	got, err := l.Deposited(ctx, "walletA")
	require.NoError(t, err)
	assert.Equal(t, 0.75, got)
}

func TestAccumulateIsolatesWallets(t *testing.T) {
	ctx := context.Background()
	l := New(NewMemoryKV(), testLogger())

	_, err := l.Accumulate(ctx, "walletA", 1)
	require.NoError(t, err)
	_, err = l.Accumulate(ctx, "walletB", 2)
	require.NoError(t, err)

	a, _ := l.Deposited(ctx, "walletA")
	b, _ := l.Deposited(ctx, "walletB")
	c, _ := l.Deposited(ctx, "walletC")
	assert.Equal(t, 1.0, a)
	assert.Equal(t, 2.0, b)
	assert.Equal(t, 0.0, c)
}

func TestAccumulateRejectsInvalidAmounts(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	l := New(kv, testLogger())

	for _, amt := range []float64{0, -1} {
		_, err := l.Accumulate(ctx, "walletA", amt)
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %v", amt)
	}
	_, err := l.Accumulate(ctx, "", 1)
	assert.Error(t, err)

	_, err = kv.Get(ctx, DepositsKey)
	assert.ErrorIs(t, err, ErrKeyNotFound, "rejected deposits must not write the key")
}

func TestMalformedDocumentIsZero(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, DepositsKey, []byte(`{not json`)))
	l := New(kv, testLogger())

	got, err := l.Deposited(ctx, "walletA")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	total, err := l.Accumulate(ctx, "walletA", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, total)
}

func TestMalformedEntriesAreSkipped(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, DepositsKey, []byte(`{"a": 1.5, "b": "2.25", "c": "abc", "d": -4, "e": {"x": 1}}`)))
	l := New(kv, testLogger())

	all, err := l.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 1.5, "b": 2.25}, all)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("boom") }
func (failingKV) Set(context.Context, string, []byte) error   { return errors.New("boom") }

func TestBackendFailureIsReported(t *testing.T) {
	l := New(failingKV{}, testLogger())
	_, err := l.Deposited(context.Background(), "walletA")
	assert.Error(t, err)
	_, err = l.Accumulate(context.Background(), "walletA", 1)
	assert.Error(t, err)
}

func TestConcurrentAccumulate(t *testing.T) {
	ctx := context.Background()
	l := New(NewMemoryKV(), testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Accumulate(ctx, "walletA", 1)
		}()
	}
	wg.Wait()

	got, err := l.Deposited(ctx, "walletA")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got)
}

package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, DepositsKey)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, DepositsKey, []byte(`{"a":1}`)))
	got, err := kv.Get(ctx, DepositsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	require.NoError(t, kv.Set(ctx, DepositsKey, []byte(`{"a":2}`)))
	got, err = kv.Get(ctx, DepositsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(got))
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestFileKV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	kv := NewFileKV(dir)
	exerciseKV(t, kv)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must be cleaned up")
	assert.Equal(t, "meteora-user-deposits.json", entries[0].Name())
}

func TestFileKVSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	l := New(NewFileKV(dir), testLogger())
	_, err := l.Accumulate(ctx, "walletA", 3)
	require.NoError(t, err)

	reopened := New(NewFileKV(dir), testLogger())
	got, err := reopened.Deposited(ctx, "walletA")
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)
}

func TestRedisKV(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	kv, err := NewRedisKV("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	defer kv.Close()

	exerciseKV(t, kv)
	assert.NoError(t, kv.Ping(context.Background()))
}

func TestRedisKVBadURL(t *testing.T) {
	_, err := NewRedisKV("://nope", "")
	assert.Error(t, err)
}

func TestPostgresKV(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	kv, err := NewPostgresKV(ctx, dsn)
	require.NoError(t, err)
	defer kv.Close()
	require.NoError(t, kv.Migrate(ctx))

	_, err = kv.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, DepositsKey)
	require.NoError(t, err)

	exerciseKV(t, kv)
}

// Package dedup remembers which alerts have already been delivered.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator checks and records whether an alert has been sent.
type Deduplicator struct {
	rdb *redis.Client
}

// New creates a Deduplicator backed by Redis.
func New(redisURL, password string) (*Deduplicator, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Deduplicator{rdb: rdb}, nil
}

// NewFromClient shares an existing connection, e.g. the ledger's.
func NewFromClient(rdb *redis.Client) *Deduplicator {
	return &Deduplicator{rdb: rdb}
}

// Close shuts down the Redis connection.
func (d *Deduplicator) Close() error {
	return d.rdb.Close()
}

// AlreadySent reports whether key was recorded. It fails closed: when Redis
// cannot be reached the alert counts as sent.
func (d *Deduplicator) AlreadySent(ctx context.Context, key string) bool {
	exists, err := d.rdb.Exists(ctx, key).Result()
	if err != nil {
		return true
	}
	return exists > 0
}

// Record marks key as sent permanently (no expiry).
func (d *Deduplicator) Record(ctx context.Context, key string) error {
	return d.rdb.Set(ctx, key, "1", 0).Err()
}

// Clear removes a dedup key so the alert can fire again when the condition resets.
func (d *Deduplicator) Clear(ctx context.Context, key string) error {
	return d.rdb.Del(ctx, key).Err()
}

// Memory is an in-process Deduplicator for deployments without Redis.
// State is lost on restart, so an alert may repeat once after a deploy.
type Memory struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{keys: make(map[string]struct{})}
}

func (m *Memory) AlreadySent(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok
}

func (m *Memory) Record(_ context.Context, key string) error {
	m.mu.Lock()
	m.keys[key] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.keys, key)
	m.mu.Unlock()
	return nil
}

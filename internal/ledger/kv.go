// Package ledger keeps the cumulative amount each wallet has deposited.
//
// The ledger is a single JSON document stored under one key of a small
// key/value backend, mirroring browser local storage: read the key, modify
// the document, write it back.
package ledger

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KV.Get when the key has never been written.
var ErrKeyNotFound = errors.New("ledger: key not found")

// KV is the storage contract the ledger needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

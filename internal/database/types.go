package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KV.Get when the key was never written.
var ErrNotFound = errors.New("key not found")

// KV is a single-namespace key-value store. Writes replace the whole value
// and are atomic per key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

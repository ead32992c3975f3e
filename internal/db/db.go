// Package db declares the cache backend that holds embedding vectors for
// similarity references. Values are opaque encoded vectors.
package db

import (
	"context"
	"time"
)

// Store is the backend opened by the server and the SDK when a cache is configured.
type Store interface {
	VectorCache
	Ping(ctx context.Context) error
	// WaitForReady pings until the backend answers or timeout elapses.
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// VectorCache reads and writes encoded embeddings. Get reports a miss with
// ErrKeyNotFound. A non-positive ttl stores the entry without expiration.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

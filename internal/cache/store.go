// Package cache implements the cache-aside layer in front of the analytics
// engine: typed keys, TTL policy, pattern invalidation and hit/miss metrics
// over a pluggable key-value Store.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps store failures. Readers treat it as a miss.
var ErrUnavailable = errors.New("cache unavailable")

// Store is a byte-oriented key-value store with per-key expiry.
type Store interface {
	// Get returns the value and true on hit, false on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// KeysMatching enumerates keys matching a glob pattern (*, ?, [...]).
	KeysMatching(ctx context.Context, pattern string) ([]string, error)

	// DeleteMany removes keys and returns how many existed.
	DeleteMany(ctx context.Context, keys []string) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

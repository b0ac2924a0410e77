package shared

import (
	"context"
	"time"
)

// QuoteCache stores encoded tax provider quotes keyed by request fingerprint
type QuoteCache interface {
	// Get returns the cached value and true, or false if the key is absent or expired
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close closes the cache and releases resources
	Close() error
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/taxbridge/backend/internal/domain/shared"
)

const defaultKeyPrefix = "tax:quote:"

// RedisQuoteCache implements QuoteCache using Redis
// This is suitable for distributed deployments where multiple instances
// should share provider quotes
type RedisQuoteCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisQuoteCache creates a new Redis-based quote cache
func NewRedisQuoteCache(cfg RedisConfig) (*RedisQuoteCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisQuoteCacheWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisQuoteCacheWithClient creates a cache with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisQuoteCacheWithClient(client *redis.Client, keyPrefix string) *RedisQuoteCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisQuoteCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached value if present
func (c *RedisQuoteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read quote from cache: %w", err)
	}
	return value, true, nil
}

// Set stores a value with a TTL. A non-positive TTL is a no-op.
func (c *RedisQuoteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write quote to cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisQuoteCache) Close() error {
	return c.client.Close()
}

// Ensure RedisQuoteCache implements QuoteCache
var _ shared.QuoteCache = (*RedisQuoteCache)(nil)

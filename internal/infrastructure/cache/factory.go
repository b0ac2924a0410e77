package cache

import (
	"fmt"

	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// QuoteCacheFactory creates quote caches based on configuration
type QuoteCacheFactory struct {
	cacheConfig config.CacheConfig
	redisConfig config.RedisConfig
	logger      *zap.Logger
	dial        func(RedisConfig) (shared.QuoteCache, error)
}

// QuoteCacheFactoryOption is a functional option for configuring the factory
type QuoteCacheFactoryOption func(*QuoteCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) QuoteCacheFactoryOption {
	return func(f *QuoteCacheFactory) {
		f.logger = logger
	}
}

// NewQuoteCacheFactory creates a new factory
func NewQuoteCacheFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...QuoteCacheFactoryOption) *QuoteCacheFactory {
	f := &QuoteCacheFactory{
		cacheConfig: cacheCfg,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
		dial: func(cfg RedisConfig) (shared.QuoteCache, error) {
			return NewRedisQuoteCache(cfg)
		},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-based quote cache
func (f *QuoteCacheFactory) CreateRedisCache() (shared.QuoteCache, error) {
	c, err := f.dial(RedisConfig{
		Host:      f.redisConfig.Host,
		Port:      f.redisConfig.Port,
		Password:  f.redisConfig.Password,
		DB:        f.redisConfig.DB,
		KeyPrefix: f.cacheConfig.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis quote cache: %w", err)
	}
	return c, nil
}

// CreateInMemoryCache creates an in-memory quote cache
// Quotes are not shared across process instances
func (f *QuoteCacheFactory) CreateInMemoryCache() shared.QuoteCache {
	return NewInMemoryQuoteCache()
}

// CreateCache creates the quote cache selected by cache.driver.
// With the redis driver it falls back to memory when Redis is unreachable
// and cache.allow_fallback is set.
func (f *QuoteCacheFactory) CreateCache() (shared.QuoteCache, error) {
	if f.cacheConfig.Driver != config.CacheDriverRedis {
		f.logger.Info("using in-memory quote cache")
		return f.CreateInMemoryCache(), nil
	}

	c, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis quote cache")
		return c, nil
	}

	if !f.cacheConfig.AllowFallback {
		return nil, err
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory quote cache",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}

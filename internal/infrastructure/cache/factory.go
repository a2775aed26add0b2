package cache

import (
	"fmt"

	"github.com/formbox/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// AnalyticsCacheFactory creates analytics caches based on configuration
type AnalyticsCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// AnalyticsCacheFactoryOption is a functional option for configuring the factory
type AnalyticsCacheFactoryOption func(*AnalyticsCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) AnalyticsCacheFactoryOption {
	return func(f *AnalyticsCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) AnalyticsCacheFactoryOption {
	return func(f *AnalyticsCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewAnalyticsCacheFactory creates a new factory
func NewAnalyticsCacheFactory(cfg config.RedisConfig, opts ...AnalyticsCacheFactoryOption) *AnalyticsCacheFactory {
	f := &AnalyticsCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateCache creates an analytics cache. When Redis is enabled in the
// configuration it is tried first, with an in-memory fallback unless
// fallback is disabled.
func (f *AnalyticsCacheFactory) CreateCache() (AnalyticsCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("using in-memory analytics cache")
		return NewInMemoryAnalyticsCache(), nil
	}

	cache, err := NewRedisAnalyticsCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis analytics cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for analytics cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory analytics cache. "+
		"Cached statistics will not be shared across instances.",
		zap.Error(err),
	)
	return NewInMemoryAnalyticsCache(), nil
}

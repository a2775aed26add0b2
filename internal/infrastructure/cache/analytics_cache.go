package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/formbox/backend/internal/domain/forms"
	"github.com/redis/go-redis/v9"
)

// AnalyticsCache stores computed per-schema field statistics for a short TTL
// so that repeated analytics reads do not hit the database. Keys are table
// names; a submission invalidates its table's entry.
type AnalyticsCache interface {
	Get(ctx context.Context, tableName string) (*forms.FieldStats, bool, error)
	Set(ctx context.Context, tableName string, stats *forms.FieldStats, ttl time.Duration) error
	Invalidate(ctx context.Context, tableName string) error
	Close() error
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisAnalyticsCache implements AnalyticsCache using Redis. Suitable for
// multi-instance deployments where every instance should see the same cached
// statistics.
type RedisAnalyticsCache struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
}

// NewRedisAnalyticsCache creates a Redis-backed analytics cache and verifies
// the connection
func NewRedisAnalyticsCache(cfg RedisConfig) (*RedisAnalyticsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisAnalyticsCache{
		client:     client,
		ownsClient: true,
		keyPrefix:  "form:analytics:",
	}, nil
}

// NewRedisAnalyticsCacheWithClient creates a cache with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisAnalyticsCacheWithClient(client *redis.Client, keyPrefix string) *RedisAnalyticsCache {
	if keyPrefix == "" {
		keyPrefix = "form:analytics:"
	}
	return &RedisAnalyticsCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached statistics for a table, if present
func (c *RedisAnalyticsCache) Get(ctx context.Context, tableName string) (*forms.FieldStats, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+tableName).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read analytics cache: %w", err)
	}

	var stats forms.FieldStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		// A corrupt entry behaves like a miss; it will be overwritten
		return nil, false, nil
	}
	return &stats, true, nil
}

// Set stores the statistics for a table with the given TTL
func (c *RedisAnalyticsCache) Set(ctx context.Context, tableName string, stats *forms.FieldStats, ttl time.Duration) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode analytics: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+tableName, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write analytics cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached statistics for a table
func (c *RedisAnalyticsCache) Invalidate(ctx context.Context, tableName string) error {
	if err := c.client.Del(ctx, c.keyPrefix+tableName).Err(); err != nil {
		return fmt.Errorf("failed to invalidate analytics cache: %w", err)
	}
	return nil
}

// Close closes the Redis client if this cache owns it
func (c *RedisAnalyticsCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// Ensure RedisAnalyticsCache implements AnalyticsCache
var _ AnalyticsCache = (*RedisAnalyticsCache)(nil)

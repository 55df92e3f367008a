package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/signup-forms/internal/observability"
)

const keyPrefix = "signup-forms:"

// Cache is a read-through JSON cache in Redis. Redis failures are logged and
// fall through to the loader.
type Cache struct {
	client  redis.Cmdable
	ttl     time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New builds a cache; a nil client disables caching.
func New(client redis.Cmdable, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl, logger: logger, metrics: metrics}
}

// EmailTemplatesKey is the cache key of a store's template set.
func EmailTemplatesKey(storeHash string) string {
	return "email_templates:" + storeHash
}

// SettingsKey is the cache key of a store's settings.
func SettingsKey(storeHash string) string {
	return "settings:" + storeHash
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the cached value into dest and reports whether it was present.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value under key for the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err()
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	return c.client.Del(ctx, prefixed...).Err()
}

// GetOrLoad returns the cached value for key, calling load and caching its
// result on a miss.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	hit, err := c.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if c.enabled() {
		c.metrics.RecordCacheLookup(hit)
	}
	if hit {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := c.Set(ctx, key, value); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

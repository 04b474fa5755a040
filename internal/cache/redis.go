package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache talks to a redis server over a persistent connection.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps an existing go-redis client.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("cache: redis get failed", "key", key, "error", err)
		return nil, false
	}
	return val, true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.Warn("cache: redis set failed", "key", key, "error", err)
	}
}

// Invalidate implements Cache.
func (c *RedisCache) Invalidate(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		slog.Warn("cache: redis del failed", "key", key, "error", err)
	}
}

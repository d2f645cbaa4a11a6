package cashflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAccountSetCache shares resolved cash-account sets across processes.
// Redis failures degrade to cache misses; they never fail a resolution.
type RedisAccountSetCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisAccountSetCache wraps a Redis client.
func NewRedisAccountSetCache(client *redis.Client, logger *slog.Logger) *RedisAccountSetCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisAccountSetCache{client: client, logger: logger}
}

// Get implements AccountSetCache.
func (c *RedisAccountSetCache) Get(ctx context.Context, key string) ([]int64, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cash account cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var ids []int64
	if err := json.Unmarshal(payload, &ids); err != nil {
		c.logger.Warn("cash account cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return ids, true
}

// Set implements AccountSetCache.
func (c *RedisAccountSetCache) Set(ctx context.Context, key string, ids []int64, ttl time.Duration) {
	payload, err := json.Marshal(ids)
	if err != nil {
		c.logger.Warn("cash account cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.logger.Warn("cash account cache set failed", "key", key, "error", err)
	}
}

// Delete implements AccountSetCache.
func (c *RedisAccountSetCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cash account cache delete failed", "key", key, "error", err)
	}
}

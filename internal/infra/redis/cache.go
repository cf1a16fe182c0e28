package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kislikjeka/memechain/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how stale a listing may be when no write invalidated it
	DefaultTTL = 15 * time.Second

	// KeyPrefix is the prefix for view cache keys
	KeyPrefix = "memechain:view:"
)

// ViewCache is a Redis-backed store for JSON read views
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewViewCache creates a view cache; a non-positive ttl uses DefaultTTL
func NewViewCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *ViewCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ViewCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "view_cache"),
	}
}

// TTL returns the expiry applied by Set
func (c *ViewCache) TTL() time.Duration {
	return c.ttl
}

// Get decodes the value stored under key into dst
func (c *ViewCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	val, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache miss", "key", key)
		return false, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "key", key, "error", err)
		return false, fmt.Errorf("failed to get cached view: %w", err)
	}

	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached view %s: %w", key, err)
	}

	c.logger.Debug("cache hit", "key", key)
	return true, nil
}

// Set stores value under key with the cache TTL
func (c *ViewCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal view %s: %w", key, err)
	}

	if err := c.client.Set(ctx, KeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "key", key, "error", err)
		return fmt.Errorf("failed to set cached view: %w", err)
	}

	return nil
}

// Delete removes keys in one round trip
func (c *ViewCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = KeyPrefix + key
	}

	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("failed to delete cached views: %w", err)
	}
	return nil
}

// Clear removes every cached view and returns how many keys were deleted
func (c *ViewCache) Clear(ctx context.Context) (int, error) {
	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", 0).Iterator()

	pipe := c.client.Pipeline()
	total, count := 0, 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
		if count >= 100 {
			if _, err := pipe.Exec(ctx); err != nil {
				return total, fmt.Errorf("failed to clear cache: %w", err)
			}
			total += count
			pipe = c.client.Pipeline()
			count = 0
		}
	}

	if count > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return total, fmt.Errorf("failed to clear cache: %w", err)
		}
		total += count
	}

	if err := iter.Err(); err != nil {
		return total, err
	}

	c.logger.Info("view cache cleared", "keys", total)
	return total, nil
}

// Ping reports whether Redis is reachable
func (c *ViewCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

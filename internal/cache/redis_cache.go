package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client redis.Cmdable
	cfg    *config.CacheConfig
}

func NewRedisCache(client redis.Cmdable, cfg *config.CacheConfig) Cache {
	return &redisCache{client: client, cfg: cfg}
}

// Get evicts an entry that no longer decodes into value, so the next read repopulates it.
func (c *redisCache) Get(ctx context.Context, key string, value any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to get key %s from redis: %w", key, err)
	}

	if decodeErr := json.Unmarshal(raw, value); decodeErr != nil {
		if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
			return false, errors.Join(fmt.Errorf("decoding cached %s: %w", key, decodeErr), delErr)
		}
		return false, fmt.Errorf("decoding cached %s: %w", key, decodeErr)
	}

	return true, nil
}

func (c *redisCache) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return c.cfg.DefaultTTL
}

func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s for cache: %w", key, err)
	}

	if err := c.client.Set(ctx, key, raw, c.ttlOrDefault(ttl)).Err(); err != nil {
		return fmt.Errorf("failed to set key %s in redis: %w", key, err)
	}

	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys %v from redis: %w", keys, err)
	}

	return nil
}

// Close leaves the shared client open; main closes it.
func (c *redisCache) Close() error {
	return nil
}

package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "credentials:"

type Cache interface {
	Get(ctx context.Context, name Name) (string, error)
	Set(ctx context.Context, name Name, value string) error
	Delete(ctx context.Context, names ...Name) error
}

type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache stores values under credentials:<name>. A zero ttl keeps
// them until cleared.
func NewRedisCache(redisClient *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		redis: redisClient,
		ttl:   ttl,
	}
}

func cacheKey(name Name) string {
	return keyPrefix + string(name)
}

func (c *RedisCache) Get(ctx context.Context, name Name) (string, error) {
	val, err := c.redis.Get(ctx, cacheKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, name Name, value string) error {
	return c.redis.Set(ctx, cacheKey(name), value, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, names ...Name) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = cacheKey(n)
	}
	return c.redis.Del(ctx, keys...).Err()
}

package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis backs the result cache with a Redis instance so multiple service
// replicas share one cache.
type Redis struct {
	c *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(c *redis.Client) *Redis { return &Redis{c: c} }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.c.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, err
	}
	return val, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Flush(ctx context.Context) error {
	return r.c.FlushDB(ctx).Err()
}

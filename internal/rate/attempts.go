// internal/rate/attempts.go
package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter tracks per-key attempt counts for bounded-retry flows.
type Counter interface {
	Increment(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
}

// RedisCounter counts OTP attempts in Redis. Counts expire with the window so
// an abandoned transaction does not pin its counter forever.
type RedisCounter struct {
	rdb    *redis.Client
	window time.Duration
}

var _ Counter = (*RedisCounter)(nil)

func NewRedisCounter(rdb *redis.Client, window time.Duration) *RedisCounter {
	return &RedisCounter{rdb: rdb, window: window}
}

func (c *RedisCounter) Increment(ctx context.Context, key string) (int, error) {
	redisKey := c.key(key)

	count, err := c.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("increment attempt counter: %w", err)
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, redisKey, c.window).Err(); err != nil {
			return 0, fmt.Errorf("set attempt counter expiry: %w", err)
		}
	}
	return int(count), nil
}

func (c *RedisCounter) Reset(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.key(key)).Err()
}

func (c *RedisCounter) key(key string) string {
	return fmt.Sprintf("otp:attempts:%s", key)
}

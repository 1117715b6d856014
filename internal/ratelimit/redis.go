package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts attempts in Redis so the limit holds across
// service instances. Fixed window: the first attempt sets the key TTL,
// later attempts within the TTL increment the counter.
type RedisLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
	prefix      string
}

func NewRedisLimiter(client *redis.Client, maxRequests int, window time.Duration, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
		prefix:      prefix,
	}
}

func (l *RedisLimiter) key(key string) string {
	return l.prefix + ":" + key
}

func (l *RedisLimiter) Admit(ctx context.Context, key string) (bool, error) {
	k := l.key(key)
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("rate limiter redis: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limiter redis: %w", err)
		}
	}
	if count > int64(l.maxRequests) {
		// Undo the increment so rejected attempts are not recorded.
		_ = l.client.Decr(ctx, k).Err()
		return false, nil
	}
	return true, nil
}

func (l *RedisLimiter) Remaining(ctx context.Context, key string) (int, error) {
	count, err := l.client.Get(ctx, l.key(key)).Int64()
	if err == redis.Nil {
		return l.maxRequests, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rate limiter redis: %w", err)
	}
	if rem := l.maxRequests - int(count); rem > 0 {
		return rem, nil
	}
	return 0, nil
}

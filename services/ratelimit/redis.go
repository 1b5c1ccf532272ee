package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/campus/core"
)

const keyPrefix = "ratelimit:"

// RedisLimiter is a fixed window limiter shared by every API instance.
// A limit of 0 or less disables limiting.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

var _ core.RateLimiter = (*RedisLimiter)(nil)

func NewRedisClient(conf core.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: int64(limit), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l.limit <= 0 {
		return true, 0, nil
	}
	k := keyPrefix + key
	count, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, errors.Wrap(err, "incrementing rate counter")
	}

	// Set expiration on first increment
	if count == 1 {
		if err = l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, 0, errors.Wrap(err, "expiring rate counter")
		}
	}
	if count <= l.limit {
		return true, 0, nil
	}

	ttl, err := l.rdb.TTL(ctx, k).Result()
	if err != nil {
		return false, 0, errors.Wrap(err, "reading rate counter ttl")
	}
	if ttl < 0 {
		// lost its expiry: restart the window
		_ = l.rdb.Expire(ctx, k, l.window).Err()
		ttl = l.window
	}
	return false, ttl, nil
}

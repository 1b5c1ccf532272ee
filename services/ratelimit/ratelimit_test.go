package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	l := NewMemoryLimiter(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "ST001")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, retryAfter, err := l.Allow(ctx, "ST001")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retryAfter)

	// other keys have their own window
	ok, _, _ = l.Allow(ctx, "ST002")
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	ok, _, _ = l.Allow(ctx, "ST001")
	assert.True(t, ok)
}

func TestRedisLimiter_unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer rdb.Close()

	ok, _, err := NewRedisLimiter(rdb, 1, time.Minute).Allow(context.Background(), "ST001")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestLimiter_zeroLimitDisables(t *testing.T) {
	// unreachable on purpose: a disabled limiter never talks to redis
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer rdb.Close()

	tests := []struct {
		name    string
		limiter interface {
			Allow(context.Context, string) (bool, time.Duration, error)
		}
	}{
		{name: "memory zero", limiter: NewMemoryLimiter(0, time.Minute)},
		{name: "memory negative", limiter: NewMemoryLimiter(-1, time.Minute)},
		{name: "redis zero", limiter: NewRedisLimiter(rdb, 0, time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				ok, retryAfter, err := tt.limiter.Allow(context.Background(), "ST001")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Zero(t, retryAfter)
			}
		})
	}
}

package core

import (
	"context"
	"time"
)

// RateLimiter counts the calls made under a key within a time window.
type RateLimiter interface {
	// Allow records one call for `key`. When the limit is exceeded, it returns false and how long to wait.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

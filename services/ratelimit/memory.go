package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/campus/core"
)

var nowFunc = time.Now // mockable

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed window limiter local to the process. Used in development and tests.
// A limit of 0 or less disables limiting.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*window
}

var _ core.RateLimiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(limit int, win time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, window: win, windows: make(map[string]*window)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if l.limit <= 0 {
		return true, 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := nowFunc()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
		l.evict(now)
	}
	w.count++
	if w.count <= l.limit {
		return true, 0, nil
	}
	return false, w.resetAt.Sub(now), nil
}

// evict drops expired windows once the map grows.
func (l *MemoryLimiter) evict(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}

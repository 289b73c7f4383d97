package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter: mismo fixed window que RedisLimiter pero in-process, para
// despliegues de una sola réplica sin Redis. Las ventanas viejas expiran
// solas vía go-cache.
type MemoryLimiter struct {
	c      *gocache.Cache
	max    int64
	window time.Duration

	// mu serializa el increment-or-set: dos primeros hits concurrentes no
	// deben pisarse el contador.
	mu sync.Mutex
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		max:    int64(max),
		window: window,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	winStart := time.Now().UTC().Truncate(l.window)
	bucket := fmt.Sprintf("%s:%d", key, winStart.Unix())

	l.mu.Lock()
	hits, err := l.c.IncrementInt64(bucket, 1)
	if err != nil {
		l.c.Set(bucket, int64(1), l.window)
		hits = 1
	}
	l.mu.Unlock()

	allowed := hits <= l.max
	remaining := l.max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   l.window,
	}
	if !allowed {
		res.RetryAfter = time.Until(winStart.Add(l.window))
	}
	return res, nil
}

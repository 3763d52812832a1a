package cache

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	value     int64
	expiresAt time.Time
}

// MemoryCache is an in-process Cache used when no Redis URL is configured.
// Counters are only visible to this process.
type MemoryCache struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
	lastGC   time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

func (c *MemoryCache) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (c *MemoryCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.collectLocked(now)

	ctr, ok := c.counters[key]
	if !ok || !now.Before(ctr.expiresAt) {
		ctr = &counter{expiresAt: now.Add(expiry)}
		c.counters[key] = ctr
	}
	ctr.value++
	return ctr.value, nil
}

func (c *MemoryCache) Close() error {
	return nil
}

// collectLocked drops expired counters at most once a minute.
func (c *MemoryCache) collectLocked(now time.Time) {
	if now.Sub(c.lastGC) < time.Minute {
		return
	}
	c.lastGC = now
	for key, ctr := range c.counters {
		if !now.Before(ctr.expiresAt) {
			delete(c.counters, key)
		}
	}
}

// Len reports how many counters are held, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counters)
}

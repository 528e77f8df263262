package cache

import (
	"context"
	"sync"
	"time"
)

const (
	defaultMaxEntries    = 1000
	defaultSweepInterval = time.Minute
)

type entry struct {
	v    any
	exp  time.Time
	used uint64
}

// TTLCache is an in-process cache with per-entry expiry. Expired entries
// are swept on writes at most once per sweep interval, and the least
// recently used entry is evicted when the cache is full.
type TTLCache struct {
	mu        sync.Mutex
	m         map[string]*entry
	now       func() time.Time
	max       int
	interval  time.Duration
	lastSweep time.Time
	tick      uint64
}

type TTLOption func(*TTLCache)

// WithMaxEntries bounds the number of stored entries. n <= 0 keeps the
// default.
func WithMaxEntries(n int) TTLOption {
	return func(c *TTLCache) {
		if n > 0 {
			c.max = n
		}
	}
}

// WithSweepInterval sets how often writes scan for expired entries.
func WithSweepInterval(d time.Duration) TTLOption {
	return func(c *TTLCache) {
		if d > 0 {
			c.interval = d
		}
	}
}

func NewTTLCache(opts ...TTLOption) *TTLCache {
	c := &TTLCache{
		m:        make(map[string]*entry),
		now:      time.Now,
		max:      defaultMaxEntries,
		interval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.m, key)
		return nil, false
	}
	c.tick++
	e.used = c.tick
	return e.v, true
}

func (c *TTLCache) Set(key string, v any, ttl time.Duration) {
	now := c.now()
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) >= c.interval {
		c.purgeLocked(now)
	}
	if _, exists := c.m[key]; !exists && len(c.m) >= c.max {
		c.purgeLocked(now)
		for len(c.m) >= c.max {
			c.evictLRULocked()
		}
	}
	c.tick++
	c.m[key] = &entry{v: v, exp: exp, used: c.tick}
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Purge drops expired entries.
func (c *TTLCache) Purge() {
	c.mu.Lock()
	c.purgeLocked(c.now())
	c.mu.Unlock()
}

func (c *TTLCache) purgeLocked(now time.Time) {
	for k, e := range c.m {
		if e.expired(now) {
			delete(c.m, k)
		}
	}
	c.lastSweep = now
}

func (c *TTLCache) evictLRULocked() {
	var (
		oldest string
		used   uint64
		found  bool
	)
	for k, e := range c.m {
		if !found || e.used < used {
			oldest, used, found = k, e.used, true
		}
	}
	if found {
		delete(c.m, oldest)
	}
}

func (e *entry) expired(now time.Time) bool {
	return !e.exp.IsZero() && now.After(e.exp)
}

// Implement BytesCache
func (c *TTLCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	if v, ok := c.Get(key); ok {
		if b, ok2 := v.([]byte); ok2 {
			return b, true, nil
		}
	}
	return nil, false, nil
}

func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.Set(key, value, ttl)
	return nil
}

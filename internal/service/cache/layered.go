package cache

import (
	"context"
	"time"
)

// LayeredCache serves reads from process memory before falling back to a
// shared backend. Writes go to the backend first.
type LayeredCache struct {
	l1    *TTLCache
	l2    BytesCache
	l1TTL time.Duration
}

// NewLayeredCache wraps l2 with an in-process layer whose entries live at
// most l1TTL.
func NewLayeredCache(l2 BytesCache, l1TTL time.Duration, opts ...TTLOption) *LayeredCache {
	return &LayeredCache{l1: NewTTLCache(opts...), l2: l2, l1TTL: l1TTL}
}

func (c *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := c.l1.GetBytes(ctx, key); ok {
		return b, true, nil
	}
	b, ok, err := c.l2.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	c.l1.Set(key, b, c.l1TTL)
	return b, true, nil
}

func (c *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	l1 := c.l1TTL
	if ttl > 0 && ttl < l1 {
		l1 = ttl
	}
	c.l1.Set(key, value, l1)
	return nil
}

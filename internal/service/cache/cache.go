package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GetJSON loads key into dest. ok is false on a miss.
func GetJSON(ctx context.Context, c BytesCache, key Key, dest any) (bool, error) {
	b, ok, err := c.GetBytes(ctx, key.String())
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key.Op, err)
	}
	return true, nil
}

// SetJSON stores v under key for ttl.
func SetJSON(ctx context.Context, c BytesCache, key Key, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key.Op, err)
	}
	return c.SetBytes(ctx, key.String(), b, ttl)
}

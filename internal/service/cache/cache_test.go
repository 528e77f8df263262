package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKeyIgnoresSymbolOrder(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Key{Op: "download", Symbols: []string{"SPY", "XBI"}, Start: start, Interval: "1d"}
	b := Key{Op: "download", Symbols: []string{"XBI", "SPY"}, Start: start, Interval: "1d"}
	if a.String() != b.String() {
		t.Fatalf("keys differ: %s vs %s", a, b)
	}
	c := a
	c.AutoAdjust = true
	if a.String() == c.String() {
		t.Fatalf("auto-adjust must change the key")
	}
	d := a
	d.GroupBy = "column"
	if a.String() == d.String() {
		t.Fatalf("grouping must change the key")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	if err := c.SetBytes(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if b, ok, _ := c.GetBytes(ctx, "k"); !ok || string(b) != "v" {
		t.Fatalf("expected hit")
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.GetBytes(ctx, "k"); ok {
		t.Fatalf("expected miss after expiry")
	}
}

func TestTTLCacheSweepsExpiredOnWrite(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache(WithMaxEntries(5000))
	c.now = func() time.Time { return now }
	for i := 0; i < 1000; i++ {
		c.Set(fmt.Sprintf("k%d", i), i, time.Minute)
	}
	if c.Len() != 1000 {
		t.Fatalf("expected 1000 entries, got %d", c.Len())
	}
	now = now.Add(time.Hour)
	c.Set("fresh", 1, time.Minute)
	if c.Len() != 1 {
		t.Fatalf("expected expired entries swept, %d left", c.Len())
	}
}

func TestTTLCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewTTLCache(WithMaxEntries(2))
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a present")
	}
	c.Set("c", 3, 0)
	if c.Len() != 2 {
		t.Fatalf("expected size bound of 2, got %d", c.Len())
	}
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a kept")
	}
	c.Set("a", 4, 0)
	if v, _ := c.Get("a"); v != 4 || c.Len() != 2 {
		t.Fatalf("overwrite must not evict, got %v len=%d", v, c.Len())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	c := NewTTLCache()
	ctx := context.Background()
	key := Key{Op: "holdings", Symbols: []string{"XBI"}}
	type payload struct{ N int }
	if err := SetJSON(ctx, c, key, payload{N: 3}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	ok, err := GetJSON(ctx, c, key, &got)
	if err != nil || !ok || got.N != 3 {
		t.Fatalf("unexpected get: ok=%v err=%v got=%+v", ok, err, got)
	}
}

type failingBackend struct{ sets int }

func (f *failingBackend) GetBytes(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}

func (f *failingBackend) SetBytes(context.Context, string, []byte, time.Duration) error {
	f.sets++
	return nil
}

func TestLayeredCacheServesFromMemory(t *testing.T) {
	l2 := &failingBackend{}
	c := NewLayeredCache(l2, time.Minute)
	ctx := context.Background()
	if err := c.SetBytes(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := c.GetBytes(ctx, "k")
	if err != nil || !ok || string(b) != "v" {
		t.Fatalf("expected l1 hit, got ok=%v err=%v", ok, err)
	}
	if l2.sets != 1 {
		t.Fatalf("expected write-through to backend")
	}
}

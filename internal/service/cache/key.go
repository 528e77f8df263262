package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Key identifies a memoized provider call. Two keys with the same symbols
// in a different order are equal.
type Key struct {
	Op         string
	Symbols    []string
	Start      time.Time
	End        time.Time
	Period     string
	Interval   string
	GroupBy    string
	AutoAdjust bool
	Field      string
}

// String renders the key in a stable, storage-safe form.
func (k Key) String() string {
	syms := append([]string(nil), k.Symbols...)
	sort.Strings(syms)
	return GenerateKeyWithParams(k.Op,
		k.Interval,
		dashIfEmpty(k.GroupBy),
		k.AutoAdjust,
		dateOrDash(k.Start),
		dateOrDash(k.End),
		dashIfEmpty(k.Period),
		dashIfEmpty(k.Field),
		HashKey(strings.Join(syms, ",")),
	)
}

// GenerateKeyWithParams creates a cache key with multiple parameters.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key = fmt.Sprintf("%s:%v", key, param)
	}
	return key
}

// HashKey generates MD5 hash of a key.
func HashKey(key string) string {
	hasher := md5.New()
	hasher.Write([]byte(key))
	return hex.EncodeToString(hasher.Sum(nil))
}

func dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

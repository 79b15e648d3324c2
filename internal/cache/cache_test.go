// internal/cache/cache_test.go
package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryDateCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryDateCache(time.Hour)
	now := time.Date(2025, 9, 20, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, ok := c.GetDate(ctx, "https://example.com/a"); ok {
		t.Fatal("empty cache should miss")
	}

	date := time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC)
	c.SetDate(ctx, "https://example.com/a", date)

	got, ok := c.GetDate(ctx, "https://example.com/a")
	if !ok || !got.Equal(date) {
		t.Errorf("GetDate() = %v, %v", got, ok)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := c.GetDate(ctx, "https://example.com/a"); ok {
		t.Error("expired entry should miss")
	}
	if n := c.size(); n != 0 {
		t.Errorf("expired entry should be evicted, size() = %d", n)
	}
}

func TestMemoryDateCacheWithoutTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryDateCache(0)
	c.SetDate(ctx, "u", time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC))
	c.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }

	if _, ok := c.GetDate(ctx, "u"); !ok {
		t.Error("entries without ttl must not expire")
	}
}

func TestNewRedisDateCacheInvalidURL(t *testing.T) {
	if _, err := NewRedisDateCache(context.Background(), "://bad", time.Hour, nil); err == nil {
		t.Error("expected error for invalid URL")
	}
}

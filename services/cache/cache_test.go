package cache

import (
	"context"
	"testing"
	"time"
)

type promo struct {
	Active bool `json:"active"`
}

func TestLocalCacheExpiresAfterTTL(t *testing.T) {
	c := NewLocalSettingsCache(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "promo", promo{Active: true}); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got promo
	if ok, _ := c.Get(ctx, "promo", &got); !ok || !got.Active {
		t.Fatalf("expected fresh hit, got ok=%v %+v", ok, got)
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := c.Get(ctx, "promo", &got); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestLocalCacheInvalidate(t *testing.T) {
	c := NewLocalSettingsCache(time.Hour)
	ctx := context.Background()
	_ = c.Set(ctx, "a", promo{Active: true})
	_ = c.Set(ctx, "b", promo{Active: true})

	if err := c.Invalidate(ctx, "a"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	var got promo
	if ok, _ := c.Get(ctx, "a", &got); ok {
		t.Fatalf("expected invalidated key to miss")
	}
	if ok, _ := c.Get(ctx, "b", &got); !ok {
		t.Fatalf("expected untouched key to hit")
	}
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderExpiry(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemoryProvider()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("expected hit, got %q %v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestMemoryProviderOverwriteAndDelete(t *testing.T) {
	c := NewMemoryProvider()
	ctx := context.Background()
	key := Key("run", "latest")
	_ = c.Set(ctx, key, []byte("r1"), 0)
	_ = c.Set(ctx, key, []byte("r2"), 0)
	got, err := c.Get(ctx, key)
	if err != nil || string(got) != "r2" {
		t.Fatalf("expected latest write to win, got %q %v", got, err)
	}
	_ = c.Del(ctx, key)
	if _, err := c.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete")
	}
}

func TestKey(t *testing.T) {
	if got := Key("run", "latest"); got != "mirador-aiops:run:latest" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestNoopProvider(t *testing.T) {
	var p Provider = NoopProvider{}
	if _, err := p.Get(context.Background(), "x"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("noop should always miss")
	}
}

package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// KeyPrefix namespaces every key this service writes to a shared cache.
const KeyPrefix = "mirador-aiops"

// ErrCacheMiss signals that a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Provider mirrors encoded run snapshots. Values are opaque to the cache.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// Key joins parts under KeyPrefix, e.g. Key("run", "latest") is
// "mirador-aiops:run:latest".
func Key(parts ...string) string {
	return KeyPrefix + ":" + strings.Join(parts, ":")
}

// NoopProvider is used when no cache is configured; every read misses.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopProvider) Del(context.Context, string) error { return nil }

func (NoopProvider) Close() error { return nil }

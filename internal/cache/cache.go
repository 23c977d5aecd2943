// Package cache stores fetched market data for a bounded time. Entries are
// keyed by ticker, lookback window and as-of date, so a new trading day never
// reads yesterday's series.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kinds of cached payloads.
const (
	KindHistory     = "history"
	KindFundamental = "fundamental"
)

// Key identifies a cached payload.
type Key struct {
	Kind         string
	Symbol       string
	LookbackDays int
	AsOf         string // YYYY-MM-DD
}

// String renders the key as a slash-separated path.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d/%s", k.Kind, strings.ToUpper(k.Symbol), k.LookbackDays, k.AsOf)
}

// Cache is a TTL key/value store. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Set(ctx context.Context, key Key, value []byte, ttl time.Duration) error
	// Prune removes expired entries and returns how many were removed.
	Prune(ctx context.Context) (int, error)
}

// Config selects and configures a cache backend.
type Config struct {
	Type string // "memory", "localfs", "s3" or "none"
	Path string
	S3   S3Config
}

// New builds the cache described by cfg.
func New(cfg Config) (Cache, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemory(), nil
	case "none":
		return Nop{}, nil
	case "localfs":
		store, err := NewLocalFS(cfg.Path)
		if err != nil {
			return nil, err
		}
		return NewBlob(store), nil
	case "s3":
		store, err := NewS3(cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewBlob(store), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, Key) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, Key, []byte, time.Duration) error { return nil }
func (Nop) Prune(context.Context) (int, error)                    { return 0, nil }

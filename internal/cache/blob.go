package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// Storage is a flat blob store addressed by slash-separated paths.
// Read must return an error matching fs.ErrNotExist for missing paths.
type Storage interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, path string) error
}

const blobSuffix = ".json"

type envelope struct {
	ExpiresAt time.Time `json:"expires_at"`
	Value     []byte    `json:"value"`
}

// Blob keeps each entry as a JSON envelope in a Storage backend, so entries
// survive restarts and can be shared between instances.
type Blob struct {
	store Storage
	now   func() time.Time
}

// NewBlob wraps store as a Cache.
func NewBlob(store Storage) *Blob {
	return &Blob{store: store, now: time.Now}
}

func (b *Blob) path(key Key) string {
	return key.String() + blobSuffix
}

func (b *Blob) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	data, err := b.store.Read(ctx, b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", key, err)
	}
	if !b.now().Before(env.ExpiresAt) {
		return nil, false, nil
	}
	return env.Value, true, nil
}

func (b *Blob) Set(ctx context.Context, key Key, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(envelope{ExpiresAt: b.now().Add(ttl), Value: value})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := b.store.Write(ctx, b.path(key), data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (b *Blob) Prune(ctx context.Context) (int, error) {
	paths, err := b.store.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("listing entries: %w", err)
	}

	now := b.now()
	removed := 0
	for _, p := range paths {
		if !strings.HasSuffix(p, blobSuffix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		data, err := b.store.Read(ctx, p)
		if err != nil {
			continue
		}
		var env envelope
		// Unreadable envelopes are dropped along with expired ones.
		if json.Unmarshal(data, &env) == nil && now.Before(env.ExpiresAt) {
			continue
		}
		if err := b.store.Delete(ctx, p); err != nil {
			return removed, fmt.Errorf("deleting %s: %w", p, err)
		}
		removed++
	}
	return removed, nil
}

package collector

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/core"
	"go.uber.org/zap"
)

// CacheObserver is told about every cache lookup.
type CacheObserver interface {
	RecordCacheLookup(kind string, hit bool)
}

type nopObserver struct{}

func (nopObserver) RecordCacheLookup(string, bool) {}

// Cached serves daily history and fundamentals from a cache before asking
// the wrapped provider. Live quotes always go to the provider. Cache
// failures are logged and treated as misses.
type Cached struct {
	next     Provider
	cache    cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
	observer CacheObserver
	now      func() time.Time
}

// NewCached wraps next with c.
func NewCached(next Provider, c cache.Cache, ttl time.Duration, logger *zap.Logger, observer CacheObserver) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Cached{next: next, cache: c, ttl: ttl, logger: logger, observer: observer, now: time.Now}
}

func (c *Cached) Name() string { return c.next.Name() }

func (c *Cached) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	return c.next.FetchQuote(ctx, symbol)
}

func (c *Cached) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if interval != "1d" {
		return c.next.FetchHistory(ctx, symbol, start, end, interval)
	}
	key := cache.Key{
		Kind:         cache.KindHistory,
		Symbol:       symbol,
		LookbackDays: int(math.Round(end.Sub(start).Hours() / 24)),
		AsOf:         end.Format(core.DateLayout),
	}

	var bars []core.OHLCV
	if c.lookup(ctx, key, &bars) {
		return bars, nil
	}

	bars, err := c.next.FetchHistory(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, bars)
	return bars, nil
}

func (c *Cached) FetchFundamental(ctx context.Context, symbol string) (*core.Fundamental, error) {
	key := cache.Key{
		Kind:   cache.KindFundamental,
		Symbol: symbol,
		AsOf:   c.now().Format(core.DateLayout),
	}

	var f core.Fundamental
	if c.lookup(ctx, key, &f) {
		return &f, nil
	}

	fp, err := c.next.FetchFundamental(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fp)
	return fp, nil
}

func (c *Cached) lookup(ctx context.Context, key cache.Key, dst any) bool {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key.String()), zap.Error(err))
		ok = false
	}
	if ok {
		if err := json.Unmarshal(data, dst); err != nil {
			c.logger.Warn("cache entry undecodable", zap.String("key", key.String()), zap.Error(err))
			ok = false
		}
	}
	c.observer.RecordCacheLookup(key.Kind, ok)
	return ok
}

func (c *Cached) store(ctx context.Context, key cache.Key, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key.String()), zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
}

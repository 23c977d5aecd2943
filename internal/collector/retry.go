package collector

import (
	"context"
	"errors"
	"time"

	"github.com/newthinker/folio/internal/core"
	"go.uber.org/zap"
)

// Retrying retries a failed fetch once after a fixed backoff. Missing
// symbols are not retried.
type Retrying struct {
	next    Provider
	backoff time.Duration
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps next. A non-positive backoff disables retries.
func NewRetrying(next Provider, backoff time.Duration, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{next: next, backoff: backoff, logger: logger, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryable(err error) bool {
	return errors.Is(err, core.ErrRateLimited) || errors.Is(err, core.ErrCollectorFailed)
}

// do runs fn, and once more after the backoff when the first error is
// retryable.
func do[T any](ctx context.Context, r *Retrying, op, symbol string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil || r.backoff <= 0 || !retryable(err) {
		return v, err
	}
	r.logger.Debug("retrying fetch",
		zap.String("op", op),
		zap.String("symbol", symbol),
		zap.Duration("backoff", r.backoff),
		zap.Error(err),
	)
	if serr := r.sleep(ctx, r.backoff); serr != nil {
		return v, err
	}
	return fn()
}

func (r *Retrying) Name() string { return r.next.Name() }

func (r *Retrying) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	return do(ctx, r, "quote", symbol, func() (*core.Quote, error) {
		return r.next.FetchQuote(ctx, symbol)
	})
}

func (r *Retrying) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	return do(ctx, r, "history", symbol, func() ([]core.OHLCV, error) {
		return r.next.FetchHistory(ctx, symbol, start, end, interval)
	})
}

func (r *Retrying) FetchFundamental(ctx context.Context, symbol string) (*core.Fundamental, error) {
	return do(ctx, r, "fundamental", symbol, func() (*core.Fundamental, error) {
		return r.next.FetchFundamental(ctx, symbol)
	})
}

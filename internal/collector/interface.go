package collector

import (
	"context"
	"time"

	"github.com/newthinker/folio/internal/core"
)

// Collector fetches prices for a ticker.
type Collector interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*core.Quote, error)
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// FundamentalCollector fetches screening attributes for a ticker.
type FundamentalCollector interface {
	Name() string
	FetchFundamental(ctx context.Context, symbol string) (*core.Fundamental, error)
}

// Provider is a collector that also serves fundamentals.
type Provider interface {
	Collector
	FundamentalCollector
}

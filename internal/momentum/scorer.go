// Package momentum scores tickers by how far the live price sits above or
// below a trailing moving average.
package momentum

import (
	"fmt"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/indicator"
)

const (
	DefaultWindow     = 20
	DefaultMinPeriods = 5
)

// Scorer turns a price history and the live price into a non-negative score.
type Scorer interface {
	Name() string
	Score(series core.PriceSeries, livePrice float64) (float64, error)
}

// FromRatio maps price/average to a score. Uptrends are squared, downtrends
// stay linear, so both branches meet at 1.0.
func FromRatio(ratio float64) float64 {
	if ratio >= 1.0 {
		return ratio * ratio
	}
	return ratio
}

// averageFunc computes a trailing average over closes.
type averageFunc func(prices []float64, window, minPeriods int) (float64, bool)

type trendScorer struct {
	name       string
	window     int
	minPeriods int
	average    averageFunc
}

// NewSMA returns the default scorer: live price over the trailing simple
// moving average.
func NewSMA(window, minPeriods int) Scorer {
	return &trendScorer{name: "sma", window: window, minPeriods: minPeriods, average: indicator.TrailingSMA}
}

// NewEMA scores against a trailing exponential moving average instead.
func NewEMA(window, minPeriods int) Scorer {
	return &trendScorer{name: "ema", window: window, minPeriods: minPeriods, average: indicator.TrailingEMA}
}

// New resolves a scorer by name.
func New(name string, window, minPeriods int) (Scorer, error) {
	switch name {
	case "", "sma":
		return NewSMA(window, minPeriods), nil
	case "ema":
		return NewEMA(window, minPeriods), nil
	default:
		return nil, fmt.Errorf("unknown scorer: %s", name)
	}
}

func (s *trendScorer) Name() string { return s.name }

func (s *trendScorer) Score(series core.PriceSeries, livePrice float64) (float64, error) {
	if livePrice <= 0 {
		return 0, core.Errorf(core.ErrSymbolNotFound, "%s: no live price", series.Symbol)
	}
	avg, ok := s.average(series.Closes(), s.window, s.minPeriods)
	if !ok {
		return 0, core.Errorf(core.ErrInsufficientHistory, "%s: %d points, need at least %d",
			series.Symbol, series.Len(), s.minPeriods)
	}
	if avg <= 0 {
		return 0, core.Errorf(core.ErrInsufficientHistory, "%s: non-positive moving average", series.Symbol)
	}
	return FromRatio(livePrice / avg), nil
}

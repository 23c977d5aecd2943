package portfolio

import (
	"sort"
	"time"

	"github.com/newthinker/folio/internal/core"
)

// TrendPoint is the total asset value of the portfolio on one trading day.
type TrendPoint struct {
	Date  time.Time
	Value float64
}

// BuildTrend values the holdings on every trading day that all held tickers
// share, adding the leftover cash to each point. A day missing for any held
// ticker is dropped rather than estimated. With nothing held, the days shared
// by every supplied series carry just the cash.
func BuildTrend(allocations []Allocation, series map[string]core.PriceSeries, leftoverCash float64) []TrendPoint {
	held := make([]Allocation, 0, len(allocations))
	for _, a := range allocations {
		if a.Shares > 0 {
			held = append(held, a)
		}
	}

	tickers := make([]string, 0, len(held))
	if len(held) > 0 {
		for _, a := range held {
			tickers = append(tickers, a.Ticker)
		}
	} else {
		for _, a := range allocations {
			if _, ok := series[a.Ticker]; ok {
				tickers = append(tickers, a.Ticker)
			}
		}
	}
	if len(tickers) == 0 {
		return []TrendPoint{}
	}

	// price[day][ticker]
	closes := make(map[string]map[string]float64)
	dates := make(map[string]time.Time)
	for _, t := range tickers {
		for _, p := range series[t].Points {
			key := p.Day()
			if closes[key] == nil {
				closes[key] = make(map[string]float64, len(tickers))
				dates[key] = p.Date
			}
			closes[key][t] = p.Close
		}
	}

	points := make([]TrendPoint, 0, len(closes))
	for key, byTicker := range closes {
		if len(byTicker) != len(tickers) {
			continue
		}
		value := leftoverCash
		for _, a := range held {
			value += float64(a.Shares) * byTicker[a.Ticker]
		}
		points = append(points, TrendPoint{Date: dates[key], Value: value})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

// Tail keeps the last n points; n <= 0 keeps everything.
func Tail(points []TrendPoint, n int) []TrendPoint {
	if n <= 0 || len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

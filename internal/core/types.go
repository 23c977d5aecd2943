package core

import "time"

// DateLayout is the calendar-day key used to align series across tickers.
const DateLayout = "2006-01-02"

// Quote represents a real-time price quote
type Quote struct {
	Symbol string
	Price  float64
	Volume int64
	Time   time.Time
	Source string
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0
}

// OHLCV represents a candlestick/bar
type OHLCV struct {
	Symbol   string
	Interval string // "1d"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// Fundamental holds the screening attributes of a ticker.
// Nil numeric fields mean the provider did not report a value.
type Fundamental struct {
	Symbol        string
	Sector        string
	RevenueGrowth *float64 // fraction, 0.15 == 15%
	ROE           *float64 // fraction
	DebtToEquity  *float64 // percent, 50 == 0.5x
	PE            *float64 // trailing
	Date          time.Time
}

// IsValid checks if the fundamental record has required fields
func (f Fundamental) IsValid() bool {
	return f.Symbol != "" && !f.Date.IsZero()
}

// PricePoint is one trading day's closing price.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// Day returns the calendar-day key of the point.
func (p PricePoint) Day() string {
	return p.Date.Format(DateLayout)
}

// PriceSeries is the closing-price history of one ticker, oldest first.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// SeriesFromOHLCV keeps the close of each bar.
func SeriesFromOHLCV(symbol string, bars []OHLCV) PriceSeries {
	points := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		points = append(points, PricePoint{Date: b.Time, Close: b.Close})
	}
	return PriceSeries{Symbol: symbol, Points: points}
}

// Validate checks that dates are strictly increasing and closes are positive.
func (s PriceSeries) Validate() error {
	for i, p := range s.Points {
		if p.Close <= 0 {
			return Errorf(ErrInvalidHistory, "%s: non-positive close on %s", s.Symbol, p.Day())
		}
		if i > 0 && !p.Date.After(s.Points[i-1].Date) {
			return Errorf(ErrInvalidHistory, "%s: %s does not follow %s",
				s.Symbol, p.Day(), s.Points[i-1].Day())
		}
	}
	return nil
}

// Closes returns the closing prices in order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Len returns the number of points.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Exclusion records why a ticker was left out of a suggestion.
type Exclusion struct {
	Symbol string
	Code   string
	Reason string
}

// NewExclusion builds an exclusion from the error that caused it.
func NewExclusion(symbol string, err error) Exclusion {
	code := Code(err)
	if code == "" {
		code = ErrCollectorFailed.Code
	}
	return Exclusion{Symbol: symbol, Code: code, Reason: err.Error()}
}

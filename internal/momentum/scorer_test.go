package momentum

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/newthinker/folio/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatSeries(symbol string, n int, price float64) core.PriceSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]core.PricePoint, n)
	for i := range points {
		points[i] = core.PricePoint{Date: start.AddDate(0, 0, i), Close: price}
	}
	return core.PriceSeries{Symbol: symbol, Points: points}
}

func TestSMAMomentum_ImplementsScorer(t *testing.T) {
	var _ Scorer = NewSMA(DefaultWindow, DefaultMinPeriods)
}

func TestFromRatio(t *testing.T) {
	assert.InDelta(t, 1.21, FromRatio(1.10), 1e-12)
	assert.InDelta(t, 0.90, FromRatio(0.90), 1e-12)
	assert.Equal(t, 1.0, FromRatio(1.0))
}

func TestFromRatio_Monotonic(t *testing.T) {
	prev := FromRatio(0.01)
	for r := 0.02; r < 3.0; r += 0.01 {
		cur := FromRatio(r)
		if cur <= prev {
			t.Fatalf("score not increasing at ratio %.2f: %f <= %f", r, cur, prev)
		}
		prev = cur
	}
}

func TestFromRatio_ContinuousAtOne(t *testing.T) {
	below := FromRatio(1 - 1e-9)
	above := FromRatio(1 + 1e-9)
	assert.InDelta(t, 1.0, below, 1e-6)
	assert.InDelta(t, 1.0, above, 1e-6)
}

func TestScore_Uptrend(t *testing.T) {
	s := NewSMA(DefaultWindow, DefaultMinPeriods)
	score, err := s.Score(flatSeries("A", 25, 100), 110)
	require.NoError(t, err)
	assert.InDelta(t, 1.21, score, 1e-9)
}

func TestScore_Downtrend(t *testing.T) {
	s := NewSMA(DefaultWindow, DefaultMinPeriods)
	score, err := s.Score(flatSeries("B", 25, 100), 90)
	require.NoError(t, err)
	assert.InDelta(t, 0.90, score, 1e-9)
}

func TestScore_UsesMostRecentWindow(t *testing.T) {
	series := flatSeries("C", 30, 100)
	// Older points outside the 20-day window must not affect the average.
	for i := 0; i < 10; i++ {
		series.Points[i].Close = 1000
	}
	score, err := NewSMA(20, 5).Score(series, 100)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScore_ShortHistoryAllowed(t *testing.T) {
	score, err := NewSMA(20, 5).Score(flatSeries("D", 5, 50), 50)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScore_InsufficientHistory(t *testing.T) {
	_, err := NewSMA(20, 5).Score(flatSeries("E", 4, 50), 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInsufficientHistory))
}

func TestScore_NoLivePrice(t *testing.T) {
	_, err := NewSMA(20, 5).Score(flatSeries("F", 25, 50), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSymbolNotFound))
}

func TestScore_NeverNegative(t *testing.T) {
	s := NewEMA(20, 5)
	for _, live := range []float64{0.01, 10, 99, 100, 101, 500} {
		score, err := s.Score(flatSeries("G", 25, 100), live)
		require.NoError(t, err)
		assert.False(t, math.Signbit(score), "score for live %.2f is negative", live)
	}
}

func TestNew(t *testing.T) {
	s, err := New("", 20, 5)
	require.NoError(t, err)
	assert.Equal(t, "sma", s.Name())

	s, err = New("ema", 20, 5)
	require.NoError(t, err)
	assert.Equal(t, "ema", s.Name())

	_, err = New("rsi", 20, 5)
	assert.Error(t, err)
}

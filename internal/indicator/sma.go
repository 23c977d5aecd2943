package indicator

import "gonum.org/v1/gonum/stat"

// SMA calculates Simple Moving Average
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// EMA calculates Exponential Moving Average
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)
	multiplier := 2.0 / float64(period+1)

	// Seeded with the SMA of the first period
	ema := stat.Mean(prices[:period], nil)
	result = append(result, ema)

	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		result = append(result, ema)
	}

	return result
}

// TrailingSMA returns the mean of the last window prices. With fewer than
// window prices it averages what is available, provided at least minPeriods
// exist; ok is false otherwise.
func TrailingSMA(prices []float64, window, minPeriods int) (avg float64, ok bool) {
	n := effectivePeriod(len(prices), window, minPeriods)
	if n == 0 {
		return 0, false
	}
	return stat.Mean(prices[len(prices)-n:], nil), true
}

// TrailingEMA returns the latest EMA value using the same shortening rule as
// TrailingSMA.
func TrailingEMA(prices []float64, window, minPeriods int) (avg float64, ok bool) {
	n := effectivePeriod(len(prices), window, minPeriods)
	if n == 0 {
		return 0, false
	}
	values := EMA(prices, n)
	return values[len(values)-1], true
}

func effectivePeriod(available, window, minPeriods int) int {
	if window <= 0 {
		return 0
	}
	if minPeriods <= 0 || minPeriods > window {
		minPeriods = window
	}
	if available < minPeriods {
		return 0
	}
	if available < window {
		return available
	}
	return window
}

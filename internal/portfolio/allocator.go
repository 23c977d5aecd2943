// Package portfolio converts momentum scores into whole-share holdings and
// reports the value of those holdings over the lookback window.
package portfolio

import (
	"math"

	"github.com/newthinker/folio/internal/core"
)

// Scored is a ticker ready for allocation.
type Scored struct {
	Ticker string
	Score  float64
	Price  float64 // live price per share
}

// Allocation is the outcome for one ticker. Tickers too expensive for their
// share of capital stay in the result with zero shares.
type Allocation struct {
	Ticker    string
	Score     float64
	Weight    float64
	TargetUSD float64 // amount * weight, before rounding down to whole shares
	Price     float64
	Shares    int64
	SpentUSD  float64 // Shares * Price
	LeftUSD   float64 // TargetUSD - SpentUSD
}

// Result is the allocator output.
type Result struct {
	Allocations  []Allocation
	InvestedUSD  float64
	LeftoverCash float64
}

// Held returns the allocations with at least one share.
func (r Result) Held() []Allocation {
	held := make([]Allocation, 0, len(r.Allocations))
	for _, a := range r.Allocations {
		if a.Shares > 0 {
			held = append(held, a)
		}
	}
	return held
}

// Allocate splits amount across scored tickers in proportion to their scores
// and buys as many whole shares as each slice affords.
func Allocate(scored []Scored, amount float64) (Result, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Result{}, core.Errorf(core.ErrInvalidRequest, "investment amount must be positive, got %v", amount)
	}
	if len(scored) == 0 {
		return Result{}, core.Errorf(core.ErrDegenerateWeights, "no scored tickers")
	}

	var total float64
	for _, s := range scored {
		if s.Score < 0 || math.IsNaN(s.Score) || math.IsInf(s.Score, 0) {
			return Result{}, core.Errorf(core.ErrDegenerateWeights, "%s has score %v", s.Ticker, s.Score)
		}
		if s.Price <= 0 || math.IsNaN(s.Price) || math.IsInf(s.Price, 0) {
			return Result{}, core.Errorf(core.ErrDegenerateWeights, "%s has price %v", s.Ticker, s.Price)
		}
		total += s.Score
	}
	if total == 0 {
		return Result{}, core.Errorf(core.ErrDegenerateWeights, "scores sum to zero")
	}

	res := Result{Allocations: make([]Allocation, 0, len(scored))}
	for _, s := range scored {
		weight := s.Score / total
		target := amount * weight
		// Floor, never round: rounding up could overspend.
		shares := int64(math.Floor(target / s.Price))
		spent := float64(shares) * s.Price

		res.Allocations = append(res.Allocations, Allocation{
			Ticker:    s.Ticker,
			Score:     s.Score,
			Weight:    weight,
			TargetUSD: target,
			Price:     s.Price,
			Shares:    shares,
			SpentUSD:  spent,
			LeftUSD:   target - spent,
		})
		res.InvestedUSD += spent
	}
	res.LeftoverCash = amount - res.InvestedUSD

	return res, nil
}

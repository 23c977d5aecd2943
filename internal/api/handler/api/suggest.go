package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/money"
	"github.com/newthinker/folio/internal/strategy"
	"github.com/newthinker/folio/internal/suggest"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

// Suggester defines the interface needed from suggest.Service.
type Suggester interface {
	Suggest(ctx context.Context, req suggest.Request) (*suggest.Suggestion, error)
}

// SuggestHandler handles portfolio suggestion requests.
type SuggestHandler struct {
	suggester     Suggester
	minInvestment float64
	logger        *zap.Logger
}

// NewSuggestHandler creates a new suggestion handler. Amounts below
// minInvestment are rejected before any data is fetched.
func NewSuggestHandler(s Suggester, minInvestment float64, logger *zap.Logger) *SuggestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestHandler{suggester: s, minInvestment: minInvestment, logger: logger}
}

// SuggestRequest is the request body for a suggestion.
type SuggestRequest struct {
	InvestmentAmount float64  `json:"investment_amount"`
	Strategies       []string `json:"strategies"`
}

// Holding is one ticker of the suggested portfolio.
type Holding struct {
	Ticker          string  `json:"ticker"`
	AllocatedUSD    float64 `json:"allocated_usd"`
	TargetUSD       float64 `json:"target_usd"`
	SharesPurchased int64   `json:"shares_purchased"`
	PriceUSD        float64 `json:"price_usd"`
	WeightPct       float64 `json:"weight_pct"`
	Score           float64 `json:"score"`
}

// TrendPoint is the portfolio value on one trading day.
type TrendPoint struct {
	Date              string  `json:"date"`
	PortfolioValueUSD float64 `json:"portfolio_value_usd"`
}

// Warning reports a ticker left out of the suggestion.
type Warning struct {
	Ticker string `json:"ticker"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// SuggestResponse is the response body for a suggestion.
type SuggestResponse struct {
	SuggestedHoldings    []Holding    `json:"suggested_holdings"`
	CurrentTotalValueUSD float64      `json:"current_total_value_usd"`
	LeftoverCashUSD      float64      `json:"leftover_cash_usd"`
	WeeklyValueTrend     []TrendPoint `json:"weekly_value_trend"`
	Strategies           []string     `json:"strategies"`
	AsOf                 string       `json:"as_of"`
	Warnings             []Warning    `json:"warnings"`
	Commentary           string       `json:"commentary,omitempty"`
}

// Suggest builds a portfolio for the requested amount and strategies.
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidRequest, err))
		return
	}

	if req.InvestmentAmount < h.minInvestment {
		response.Error(w, http.StatusBadRequest, core.Errorf(core.ErrInvalidRequest,
			"investment_amount must be at least %s", money.USD(h.minInvestment)))
		return
	}
	if n := countDistinct(req.Strategies); n == 0 || n > strategy.MaxStrategies {
		response.Error(w, http.StatusBadRequest, core.Errorf(core.ErrInvalidRequest,
			"strategies must list 1 to %d entries", strategy.MaxStrategies))
		return
	}

	sug, err := h.suggester.Suggest(r.Context(), suggest.Request{
		Amount:     req.InvestmentAmount,
		Strategies: req.Strategies,
	})
	if err != nil {
		if core.IsInternal(err) {
			h.logger.Error("suggestion failed", zap.Error(err))
		}
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, NewSuggestResponse(sug))
}

// countDistinct counts identifiers case-insensitively. An id and the
// display name of the same strategy count twice here; the service
// collapses those.
func countDistinct(names []string) int {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			seen[n] = true
		}
	}
	return len(seen)
}

// NewSuggestResponse converts a suggestion into its wire form with money
// rounded to cents.
func NewSuggestResponse(sug *suggest.Suggestion) SuggestResponse {
	resp := SuggestResponse{
		SuggestedHoldings:    make([]Holding, 0, len(sug.Allocations)),
		CurrentTotalValueUSD: money.Cents(sug.CurrentTotalValue),
		LeftoverCashUSD:      money.Cents(sug.LeftoverCash),
		WeeklyValueTrend:     make([]TrendPoint, 0, len(sug.Trend)),
		Strategies:           make([]string, 0, len(sug.Strategies)),
		AsOf:                 sug.AsOf.Format(core.DateLayout),
		Warnings:             make([]Warning, 0, len(sug.Warnings)),
		Commentary:           sug.Commentary,
	}
	for _, a := range sug.Allocations {
		resp.SuggestedHoldings = append(resp.SuggestedHoldings, Holding{
			Ticker:          a.Ticker,
			AllocatedUSD:    money.Cents(a.SpentUSD),
			TargetUSD:       money.Cents(a.TargetUSD),
			SharesPurchased: a.Shares,
			PriceUSD:        money.Cents(a.Price),
			WeightPct:       money.Percent(a.Weight),
			Score:           money.Round(a.Score, 4),
		})
	}
	for _, p := range sug.Trend {
		resp.WeeklyValueTrend = append(resp.WeeklyValueTrend, TrendPoint{
			Date:              p.Date.Format(core.DateLayout),
			PortfolioValueUSD: money.Cents(p.Value),
		})
	}
	for _, st := range sug.Strategies {
		resp.Strategies = append(resp.Strategies, string(st.ID))
	}
	for _, e := range sug.Warnings {
		resp.Warnings = append(resp.Warnings, Warning{Ticker: e.Symbol, Code: e.Code, Reason: e.Reason})
	}
	return resp
}

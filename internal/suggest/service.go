// Package suggest turns an investment amount and one or two strategies into
// a whole-share portfolio with its recent value trend.
package suggest

import (
	"context"
	"math"
	"time"

	"github.com/newthinker/folio/internal/advisor"
	"github.com/newthinker/folio/internal/collector"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/momentum"
	"github.com/newthinker/folio/internal/portfolio"
	"github.com/newthinker/folio/internal/strategy"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	DefaultLookbackDays = 45
	DefaultTrendDays    = 5
	DefaultConcurrency  = 8
)

// Request is one suggestion request.
type Request struct {
	Amount     float64
	Strategies []string
}

// Suggestion is the result of one request. Allocations include tickers that
// could not afford a single share.
type Suggestion struct {
	AsOf              time.Time
	Amount            float64
	Strategies        []strategy.Strategy
	Allocations       []portfolio.Allocation
	CurrentTotalValue float64 // shares at live prices, cash excluded
	LeftoverCash      float64
	Trend             []portfolio.TrendPoint // total asset value, cash included
	Warnings          []core.Exclusion
	Commentary        string
}

// Recorder receives suggestion metrics.
type Recorder interface {
	RecordSuggestion(status string, duration float64)
	RecordHoldings(n int)
	RecordExclusion(reason string)
	RecordCommentary(ok bool)
}

// Commentator writes a short note on a finished suggestion.
type Commentator interface {
	Comment(ctx context.Context, b advisor.Brief) (string, error)
}

type nopRecorder struct{}

func (nopRecorder) RecordSuggestion(string, float64) {}
func (nopRecorder) RecordHoldings(int)               {}
func (nopRecorder) RecordExclusion(string)           {}
func (nopRecorder) RecordCommentary(bool)            {}

// Service runs the suggestion pipeline.
type Service struct {
	selector     *strategy.Selector
	prices       collector.Collector
	scorer       momentum.Scorer
	commentator  Commentator
	recorder     Recorder
	logger       *zap.Logger
	lookbackDays int
	trendDays    int
	concurrency  int
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLookbackDays sets the calendar days of history fetched per ticker.
func WithLookbackDays(n int) Option {
	return func(s *Service) { s.lookbackDays = n }
}

// WithTrendDays sets how many trailing trend points are reported; 0 keeps
// the whole window.
func WithTrendDays(n int) Option {
	return func(s *Service) { s.trendDays = n }
}

// WithConcurrency bounds the per-ticker fetch fan-out.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = n }
}

// WithCommentator enables LLM commentary.
func WithCommentator(c Commentator) Option {
	return func(s *Service) { s.commentator = c }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the as-of clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a suggestion service.
func New(selector *strategy.Selector, prices collector.Collector, scorer momentum.Scorer, opts ...Option) *Service {
	s := &Service{
		selector:     selector,
		prices:       prices,
		scorer:       scorer,
		recorder:     nopRecorder{},
		logger:       zap.NewNop(),
		lookbackDays: DefaultLookbackDays,
		trendDays:    DefaultTrendDays,
		concurrency:  DefaultConcurrency,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.lookbackDays <= 0 {
		s.lookbackDays = DefaultLookbackDays
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	return s
}

// Catalog returns the strategy catalog requests are resolved against.
func (s *Service) Catalog() *strategy.Catalog {
	return s.selector.Catalog()
}

// Suggest builds a portfolio suggestion. Tickers whose data cannot be
// fetched or scored are dropped and reported in Warnings; the request only
// fails when every ticker is dropped.
func (s *Service) Suggest(ctx context.Context, req Request) (sug *Suggestion, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			if status = core.Code(err); status == "" {
				status = "error"
			}
		}
		s.recorder.RecordSuggestion(status, time.Since(start).Seconds())
	}()

	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, core.Errorf(core.ErrInvalidRequest, "investment amount must be positive, got %v", req.Amount)
	}

	universe, err := s.selector.SelectUniverse(ctx, req.Strategies)
	if err != nil {
		return nil, err
	}

	asOf := s.now().UTC()
	fetched := s.fetchAll(ctx, universe.Tickers, asOf)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	warnings := append([]core.Exclusion(nil), universe.Exclusions...)
	scored := make([]portfolio.Scored, 0, len(fetched))
	series := make(map[string]core.PriceSeries, len(fetched))
	for _, f := range fetched {
		if f.err != nil {
			warnings = append(warnings, core.NewExclusion(f.symbol, f.err))
			continue
		}
		scored = append(scored, portfolio.Scored{Ticker: f.symbol, Score: f.score, Price: f.price})
		series[f.symbol] = f.series
	}
	for _, w := range warnings {
		s.recorder.RecordExclusion(w.Code)
		s.logger.Warn("ticker excluded",
			zap.String("symbol", w.Symbol),
			zap.String("code", w.Code),
			zap.String("reason", w.Reason),
		)
	}
	if len(scored) == 0 {
		return nil, core.Errorf(core.ErrAllDataUnavailable, "no market data for any of %v", universe.Tickers)
	}

	result, err := portfolio.Allocate(scored, req.Amount)
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		for _, sc := range scored {
			fields = append(fields, zap.Float64("score."+sc.Ticker, sc.Score), zap.Float64("price."+sc.Ticker, sc.Price))
		}
		s.logger.Error("allocation failed", fields...)
		return nil, err
	}

	trend := portfolio.BuildTrend(result.Allocations, series, result.LeftoverCash)
	if s.trendDays > 0 {
		trend = portfolio.Tail(trend, s.trendDays)
	}

	sug = &Suggestion{
		AsOf:              asOf,
		Amount:            req.Amount,
		Strategies:        universe.Strategies,
		Allocations:       result.Allocations,
		CurrentTotalValue: result.InvestedUSD,
		LeftoverCash:      result.LeftoverCash,
		Trend:             trend,
		Warnings:          warnings,
	}
	s.recorder.RecordHoldings(len(result.Held()))

	if s.commentator != nil {
		s.comment(ctx, sug)
	}

	s.logger.Info("portfolio suggested",
		zap.Float64("amount", req.Amount),
		zap.Strings("strategies", req.Strategies),
		zap.Int("tickers", len(result.Allocations)),
		zap.Int("held", len(result.Held())),
		zap.Int("warnings", len(warnings)),
		zap.Float64("leftover_cash", result.LeftoverCash),
	)
	return sug, nil
}

// comment attaches commentary. Failures are logged and leave it empty.
func (s *Service) comment(ctx context.Context, sug *Suggestion) {
	names := make([]string, len(sug.Strategies))
	for i, st := range sug.Strategies {
		names[i] = st.Name
	}
	text, err := s.commentator.Comment(ctx, advisor.Brief{
		Amount:     sug.Amount,
		Strategies: names,
		Result: portfolio.Result{
			Allocations:  sug.Allocations,
			InvestedUSD:  sug.CurrentTotalValue,
			LeftoverCash: sug.LeftoverCash,
		},
		Trend:      sug.Trend,
		Exclusions: sug.Warnings,
	})
	s.recorder.RecordCommentary(err == nil)
	if err != nil {
		s.logger.Warn("commentary unavailable", zap.Error(err))
		return
	}
	sug.Commentary = text
}

type fetchResult struct {
	symbol string
	price  float64
	series core.PriceSeries
	score  float64
	err    error
}

// fetchAll loads and scores every ticker concurrently. Results keep the
// order of tickers.
func (s *Service) fetchAll(ctx context.Context, tickers []string, asOf time.Time) []fetchResult {
	results := make([]fetchResult, len(tickers))
	start := asOf.AddDate(0, 0, -s.lookbackDays)

	p := pool.New().WithMaxGoroutines(s.concurrency)
	for i, symbol := range tickers {
		p.Go(func() {
			results[i] = s.fetchOne(ctx, symbol, start, asOf)
		})
	}
	p.Wait()
	return results
}

func (s *Service) fetchOne(ctx context.Context, symbol string, start, end time.Time) fetchResult {
	r := fetchResult{symbol: symbol}

	quote, err := s.prices.FetchQuote(ctx, symbol)
	if err != nil {
		r.err = err
		return r
	}
	if !quote.IsValid() {
		r.err = core.Errorf(core.ErrSymbolNotFound, "%s: no live price", symbol)
		return r
	}

	bars, err := s.prices.FetchHistory(ctx, symbol, start, end, "1d")
	if err != nil {
		r.err = err
		return r
	}
	series := core.SeriesFromOHLCV(symbol, bars)
	if err := series.Validate(); err != nil {
		r.err = err
		return r
	}

	score, err := s.scorer.Score(series, quote.Price)
	if err != nil {
		r.err = err
		return r
	}

	r.price = quote.Price
	r.series = series
	r.score = score
	return r
}

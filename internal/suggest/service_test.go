package suggest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/folio/internal/advisor"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/momentum"
	"github.com/newthinker/folio/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2024, 6, 28, 21, 0, 0, 0, time.UTC)

type ticker struct {
	price    float64
	closes   []float64
	dupDate  bool
	quoteErr error
	histErr  error
}

type fakeMarket struct {
	tickers map[string]ticker
}

func (m *fakeMarket) Name() string { return "fake" }

func (m *fakeMarket) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	t, ok := m.tickers[symbol]
	if !ok {
		return nil, core.Errorf(core.ErrSymbolNotFound, "%s", symbol)
	}
	if t.quoteErr != nil {
		return nil, t.quoteErr
	}
	return &core.Quote{Symbol: symbol, Price: t.price, Time: asOf}, nil
}

func (m *fakeMarket) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	t := m.tickers[symbol]
	if t.histErr != nil {
		return nil, t.histErr
	}
	day := end.Truncate(24 * time.Hour)
	bars := make([]core.OHLCV, len(t.closes))
	for i, c := range t.closes {
		d := day.AddDate(0, 0, i-len(t.closes)+1)
		if t.dupDate && i == len(t.closes)-1 {
			d = bars[i-1].Time
		}
		bars[i] = core.OHLCV{Symbol: symbol, Interval: interval, Close: c, Time: d}
	}
	return bars, nil
}

func flat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

type noFundamentals struct{}

func (noFundamentals) FetchFundamental(ctx context.Context, symbol string) (*core.Fundamental, error) {
	return nil, errors.New("not used")
}

func basketCatalog(t *testing.T, basket ...string) *strategy.Catalog {
	t.Helper()
	c, err := strategy.NewCatalog(nil,
		strategy.Strategy{ID: strategy.Index, Name: "Index Investing", Basket: basket},
	)
	require.NoError(t, err)
	return c
}

type statusRecorder struct {
	mu         sync.Mutex
	statuses   []string
	exclusions []string
	commentary []bool
	holdings   []int
}

func (r *statusRecorder) RecordSuggestion(status string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *statusRecorder) RecordHoldings(n int) { r.holdings = append(r.holdings, n) }

func (r *statusRecorder) RecordExclusion(reason string) {
	r.exclusions = append(r.exclusions, reason)
}

func (r *statusRecorder) RecordCommentary(ok bool) { r.commentary = append(r.commentary, ok) }

func newService(t *testing.T, market *fakeMarket, basket []string, opts ...Option) (*Service, *statusRecorder) {
	t.Helper()
	rec := &statusRecorder{}
	sel := strategy.NewSelector(basketCatalog(t, basket...), noFundamentals{})
	opts = append([]Option{WithClock(func() time.Time { return asOf }), WithRecorder(rec)}, opts...)
	return New(sel, market, momentum.NewSMA(momentum.DefaultWindow, momentum.DefaultMinPeriods), opts...), rec
}

// scenarioMarket: A trades 10% above its average, B 10% below.
func scenarioMarket() *fakeMarket {
	return &fakeMarket{tickers: map[string]ticker{
		"A": {price: 100, closes: flat(100/1.1, 30)},
		"B": {price: 50, closes: flat(50/0.9, 30)},
	}}
}

func TestSuggest_Scenario(t *testing.T) {
	svc, rec := newService(t, scenarioMarket(), []string{"A", "B"})

	sug, err := svc.Suggest(context.Background(), Request{Amount: 10000, Strategies: []string{"index"}})
	require.NoError(t, err)

	require.Len(t, sug.Allocations, 2)
	a, b := sug.Allocations[0], sug.Allocations[1]
	assert.Equal(t, "A", a.Ticker)
	assert.InDelta(t, 1.21, a.Score, 1e-9)
	assert.InDelta(t, 0.5735, a.Weight, 1e-4)
	assert.Equal(t, int64(57), a.Shares)
	assert.Equal(t, "B", b.Ticker)
	assert.InDelta(t, 0.90, b.Score, 1e-9)
	assert.Equal(t, int64(85), b.Shares)

	assert.InDelta(t, 9950, sug.CurrentTotalValue, 1e-6)
	assert.InDelta(t, 50, sug.LeftoverCash, 1e-6)
	assert.InDelta(t, 10000, sug.CurrentTotalValue+sug.LeftoverCash, 0.01)
	assert.Empty(t, sug.Warnings, "no failures means no warnings")
	assert.Equal(t, asOf, sug.AsOf)

	require.Len(t, sug.Trend, DefaultTrendDays)
	want := 57*(100/1.1) + 85*(50/0.9) + 50
	for i, p := range sug.Trend {
		assert.InDelta(t, want, p.Value, 1e-6)
		if i > 0 {
			assert.True(t, p.Date.After(sug.Trend[i-1].Date))
		}
	}

	assert.Equal(t, []string{"ok"}, rec.statuses)
	assert.Equal(t, []int{2}, rec.holdings)
}

func TestSuggest_TooSmallToBuyAnything(t *testing.T) {
	market := &fakeMarket{tickers: map[string]ticker{
		"X": {price: 1000, closes: flat(1000, 25)},
	}}
	svc, _ := newService(t, market, []string{"X"})

	sug, err := svc.Suggest(context.Background(), Request{Amount: 100, Strategies: []string{"index"}})
	require.NoError(t, err)

	require.Len(t, sug.Allocations, 1)
	assert.Equal(t, int64(0), sug.Allocations[0].Shares)
	assert.Equal(t, 0.0, sug.CurrentTotalValue)
	assert.InDelta(t, 100, sug.LeftoverCash, 1e-9)
	for _, p := range sug.Trend {
		assert.InDelta(t, 100, p.Value, 1e-9)
	}
}

func TestSuggest_PartialFailuresBecomeWarnings(t *testing.T) {
	market := scenarioMarket()
	market.tickers["C"] = ticker{quoteErr: core.Errorf(core.ErrRateLimited, "C")}
	market.tickers["D"] = ticker{price: 10, closes: flat(10, 3)}
	market.tickers["E"] = ticker{price: 10, closes: flat(10, 10), dupDate: true}
	market.tickers["F"] = ticker{price: 10, histErr: errors.New("connection reset")}

	svc, rec := newService(t, market, []string{"A", "C", "D", "ZZZ", "B", "E", "F"})

	sug, err := svc.Suggest(context.Background(), Request{Amount: 10000, Strategies: []string{"Index Investing"}})
	require.NoError(t, err)

	require.Len(t, sug.Allocations, 2)
	assert.Equal(t, int64(57), sug.Allocations[0].Shares)
	assert.Equal(t, int64(85), sug.Allocations[1].Shares)

	var got [][2]string
	for _, w := range sug.Warnings {
		got = append(got, [2]string{w.Symbol, w.Code})
		assert.NotEmpty(t, w.Reason)
	}
	assert.Equal(t, [][2]string{
		{"C", "RATE_LIMITED"},
		{"D", "INSUFFICIENT_HISTORY"},
		{"ZZZ", "SYMBOL_NOT_FOUND"},
		{"E", "INVALID_HISTORY"},
		{"F", "COLLECTOR_FAILED"},
	}, got, "warnings follow universe order")
	assert.Len(t, rec.exclusions, 5)
}

func TestSuggest_AllTickersFail(t *testing.T) {
	market := &fakeMarket{tickers: map[string]ticker{
		"A": {quoteErr: core.Errorf(core.ErrSymbolNotFound, "A")},
		"B": {price: 10, histErr: core.Errorf(core.ErrRateLimited, "B")},
	}}
	svc, rec := newService(t, market, []string{"A", "B"})

	sug, err := svc.Suggest(context.Background(), Request{Amount: 10000, Strategies: []string{"index"}})
	assert.Nil(t, sug)
	assert.ErrorIs(t, err, core.ErrAllDataUnavailable)
	assert.Equal(t, []string{"ALL_DATA_UNAVAILABLE"}, rec.statuses)
}

func TestSuggest_InvalidStrategy(t *testing.T) {
	svc, rec := newService(t, scenarioMarket(), []string{"A", "B"})

	sug, err := svc.Suggest(context.Background(), Request{Amount: 10000, Strategies: []string{"crypto"}})
	assert.Nil(t, sug)
	assert.ErrorIs(t, err, core.ErrInvalidStrategy)
	assert.Equal(t, []string{"INVALID_STRATEGY"}, rec.statuses)
}

func TestSuggest_InvalidAmount(t *testing.T) {
	svc, _ := newService(t, scenarioMarket(), []string{"A", "B"})

	for _, amount := range []float64{0, -5} {
		_, err := svc.Suggest(context.Background(), Request{Amount: amount, Strategies: []string{"index"}})
		assert.ErrorIs(t, err, core.ErrInvalidRequest, "amount %v", amount)
	}
}

func TestSuggest_ConcurrencyDoesNotChangeResult(t *testing.T) {
	basket := []string{"A", "B", "C", "D"}
	build := func() *fakeMarket {
		m := scenarioMarket()
		m.tickers["C"] = ticker{price: 20, closes: flat(21, 30)}
		m.tickers["D"] = ticker{price: 7, closes: flat(6.5, 30)}
		return m
	}

	serial, _ := newService(t, build(), basket, WithConcurrency(1))
	parallel, _ := newService(t, build(), basket, WithConcurrency(8))

	req := Request{Amount: 25000, Strategies: []string{"index"}}
	a, err := serial.Suggest(context.Background(), req)
	require.NoError(t, err)
	b, err := parallel.Suggest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a.Allocations, b.Allocations)
	assert.Equal(t, a.Trend, b.Trend)
}

func TestSuggest_WholeTrendWindow(t *testing.T) {
	svc, _ := newService(t, scenarioMarket(), []string{"A", "B"}, WithTrendDays(0))

	sug, err := svc.Suggest(context.Background(), Request{Amount: 10000, Strategies: []string{"index"}})
	require.NoError(t, err)
	assert.Len(t, sug.Trend, 30)
}

func TestSuggest_CanceledContext(t *testing.T) {
	svc, _ := newService(t, scenarioMarket(), []string{"A", "B"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Suggest(ctx, Request{Amount: 10000, Strategies: []string{"index"}})
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeCommentator struct {
	text  string
	err   error
	brief advisor.Brief
}

func (f *fakeCommentator) Comment(ctx context.Context, b advisor.Brief) (string, error) {
	f.brief = b
	return f.text, f.err
}

func TestSuggest_Commentary(t *testing.T) {
	c := &fakeCommentator{text: "A leads on momentum."}
	svc, rec := newService(t, scenarioMarket(), []string{"A", "B"}, WithCommentator(c))

	sug, err := svc.Suggest(context.Background(), Request{Amount: 10000, Strategies: []string{"index"}})
	require.NoError(t, err)
	assert.Equal(t, "A leads on momentum.", sug.Commentary)
	assert.Equal(t, []string{"Index Investing"}, c.brief.Strategies)
	assert.InDelta(t, 50, c.brief.Result.LeftoverCash, 1e-6)
	assert.Equal(t, []bool{true}, rec.commentary)
}

func TestSuggest_CommentaryFailureIsNotFatal(t *testing.T) {
	c := &fakeCommentator{err: core.Errorf(core.ErrLLMFailed, "timeout")}
	svc, rec := newService(t, scenarioMarket(), []string{"A", "B"}, WithCommentator(c))

	sug, err := svc.Suggest(context.Background(), Request{Amount: 10000, Strategies: []string{"index"}})
	require.NoError(t, err)
	assert.Empty(t, sug.Commentary)
	assert.Empty(t, sug.Warnings)
	assert.Equal(t, []bool{false}, rec.commentary)
}

func TestService_Catalog(t *testing.T) {
	svc, _ := newService(t, scenarioMarket(), []string{"A", "B"})
	require.Len(t, svc.Catalog().All(), 1)
}

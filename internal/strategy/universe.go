package strategy

import (
	"context"
	"fmt"

	"github.com/newthinker/folio/internal/core"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Policy decides how the ticker lists of two strategies are combined.
type Policy string

const (
	PolicyUnion        Policy = "union"
	PolicyIntersection Policy = "intersection"
)

// ParsePolicy validates a policy name; empty means union.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyUnion:
		return PolicyUnion, nil
	case PolicyIntersection:
		return PolicyIntersection, nil
	default:
		return "", fmt.Errorf("unknown combine policy: %s", s)
	}
}

// MaxStrategies is the number of strategies a request may combine.
const MaxStrategies = 2

// FundamentalsSource supplies screening data for criteria-based strategies.
type FundamentalsSource interface {
	FetchFundamental(ctx context.Context, symbol string) (*core.Fundamental, error)
}

// Universe is the candidate set for one request.
type Universe struct {
	Tickers    []string
	Strategies []Strategy
	Exclusions []core.Exclusion
}

// Selector resolves strategy identifiers into a ticker universe.
type Selector struct {
	catalog      *Catalog
	fundamentals FundamentalsSource
	policy       Policy
	maxHoldings  int
	concurrency  int
	logger       *zap.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithPolicy sets the combine policy.
func WithPolicy(p Policy) SelectorOption {
	return func(s *Selector) { s.policy = p }
}

// WithMaxHoldings caps the universe size; 0 disables the cap.
func WithMaxHoldings(n int) SelectorOption {
	return func(s *Selector) { s.maxHoldings = n }
}

// WithConcurrency bounds parallel fundamentals fetches.
func WithConcurrency(n int) SelectorOption {
	return func(s *Selector) { s.concurrency = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) SelectorOption {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSelector creates a selector over catalog.
func NewSelector(catalog *Catalog, fundamentals FundamentalsSource, opts ...SelectorOption) *Selector {
	s := &Selector{
		catalog:      catalog,
		fundamentals: fundamentals,
		policy:       PolicyUnion,
		concurrency:  4,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	return s
}

// Catalog returns the catalog the selector reads from.
func (s *Selector) Catalog() *Catalog {
	return s.catalog
}

// SelectUniverse resolves one or two strategies into a deduplicated,
// ordered ticker list.
func (s *Selector) SelectUniverse(ctx context.Context, names []string) (*Universe, error) {
	strategies, err := s.resolve(names)
	if err != nil {
		return nil, err
	}

	u := &Universe{Strategies: strategies}

	var screened []core.Fundamental
	needsScreening, hasBasket := false, false
	for _, st := range strategies {
		if st.IsBasket() {
			hasBasket = true
		} else {
			needsScreening = true
		}
	}
	if needsScreening {
		screened, u.Exclusions = s.screen(ctx, s.screenable())
		// Basket tickers need no fundamentals and survive a screening outage.
		if len(screened) == 0 && len(u.Exclusions) > 0 && !hasBasket {
			return nil, core.Errorf(core.ErrAllDataUnavailable, "fundamentals unavailable for all %d candidates", len(u.Exclusions))
		}
	}

	lists := make([][]string, 0, len(strategies))
	for _, st := range strategies {
		if st.IsBasket() {
			lists = append(lists, st.Basket)
			continue
		}
		var matched []string
		for _, f := range screened {
			if st.Criteria.Matches(f) {
				matched = append(matched, f.Symbol)
			}
		}
		lists = append(lists, matched)
	}

	switch s.policy {
	case PolicyIntersection:
		u.Tickers = intersect(lists)
	default:
		u.Tickers = union(lists)
	}

	if s.maxHoldings > 0 && len(u.Tickers) > s.maxHoldings {
		u.Tickers = u.Tickers[:s.maxHoldings]
	}
	if len(u.Tickers) == 0 {
		return nil, core.Errorf(core.ErrEmptyUniverse, "strategies %v with policy %s", names, s.policy)
	}

	s.logger.Debug("universe selected",
		zap.Strings("strategies", names),
		zap.String("policy", string(s.policy)),
		zap.Strings("tickers", u.Tickers),
	)
	return u, nil
}

func (s *Selector) resolve(names []string) ([]Strategy, error) {
	if len(names) == 0 {
		return nil, core.Errorf(core.ErrInvalidRequest, "select 1 to %d strategies, got none", MaxStrategies)
	}
	strategies := make([]Strategy, 0, len(names))
	seen := make(map[ID]bool, len(names))
	for _, name := range names {
		st, err := s.catalog.Get(name)
		if err != nil {
			return nil, err
		}
		if seen[st.ID] {
			continue
		}
		seen[st.ID] = true
		strategies = append(strategies, st)
	}
	if len(strategies) > MaxStrategies {
		return nil, core.Errorf(core.ErrInvalidRequest, "select 1 to %d strategies, got %d", MaxStrategies, len(strategies))
	}
	return strategies, nil
}

func (s *Selector) screenable() []string {
	var tickers []string
	for _, t := range s.catalog.candidates {
		if !s.catalog.excluded(t) {
			tickers = append(tickers, t)
		}
	}
	return tickers
}

type screenResult struct {
	fundamental *core.Fundamental
	err         error
}

// screen fetches fundamentals for every candidate. Results keep candidate
// order regardless of completion order.
func (s *Selector) screen(ctx context.Context, tickers []string) ([]core.Fundamental, []core.Exclusion) {
	results := make([]screenResult, len(tickers))
	p := pool.New().WithMaxGoroutines(s.concurrency)
	for i, ticker := range tickers {
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				results[i].err = core.WrapError(core.ErrCollectorFailed, err)
				return
			}
			f, err := s.fundamentals.FetchFundamental(ctx, ticker)
			if err == nil && f == nil {
				err = core.Errorf(core.ErrSymbolNotFound, "%s: no fundamentals", ticker)
			}
			results[i] = screenResult{fundamental: f, err: err}
		})
	}
	p.Wait()

	var screened []core.Fundamental
	var exclusions []core.Exclusion
	for i, r := range results {
		if r.err != nil {
			s.logger.Warn("fundamentals unavailable",
				zap.String("symbol", tickers[i]),
				zap.String("code", core.Code(r.err)),
				zap.Error(r.err),
			)
			exclusions = append(exclusions, core.NewExclusion(tickers[i], r.err))
			continue
		}
		f := *r.fundamental
		f.Symbol = tickers[i]
		screened = append(screened, f)
	}
	return screened, exclusions
}

func union(lists [][]string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, list := range lists {
		for _, t := range list {
			if !seen[t] {
				seen[t] = true
				result = append(result, t)
			}
		}
	}
	return result
}

func intersect(lists [][]string) []string {
	if len(lists) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, list := range lists {
		inList := make(map[string]bool, len(list))
		for _, t := range list {
			if !inList[t] {
				inList[t] = true
				counts[t]++
			}
		}
	}
	var result []string
	seen := make(map[string]bool)
	for _, t := range lists[0] {
		if counts[t] == len(lists) && !seen[t] {
			seen[t] = true
			result = append(result, t)
		}
	}
	return result
}

package strategy

import (
	"fmt"
	"strings"

	"github.com/newthinker/folio/internal/core"
)

// ID identifies a strategy.
type ID string

const (
	Ethical ID = "ethical"
	Growth  ID = "growth"
	Index   ID = "index"
	Quality ID = "quality"
	Value   ID = "value"
)

// Criteria are the screening thresholds of a criteria-based strategy.
// Numeric bounds are strict; nil disables a bound.
type Criteria struct {
	ExcludedSectors  []string
	MinRevenueGrowth *float64
	MinROE           *float64
	MaxDebtToEquity  *float64
	MaxPE            *float64
}

// Strategy describes how a strategy picks its tickers: either a fixed
// basket or criteria evaluated against fundamentals.
type Strategy struct {
	ID          ID
	Name        string
	Description string
	Basket      []string
	Criteria    *Criteria
}

// IsBasket reports whether the strategy holds a fixed list of tickers.
func (s Strategy) IsBasket() bool {
	return len(s.Basket) > 0
}

// Matches evaluates the criteria against a candidate's fundamentals.
// Missing values never pass a numeric bound.
func (c Criteria) Matches(f core.Fundamental) bool {
	for _, sector := range c.ExcludedSectors {
		if strings.EqualFold(sector, f.Sector) {
			return false
		}
	}
	if c.MinRevenueGrowth != nil && !(f.RevenueGrowth != nil && *f.RevenueGrowth > *c.MinRevenueGrowth) {
		return false
	}
	if c.MinROE != nil && !(f.ROE != nil && *f.ROE > *c.MinROE) {
		return false
	}
	if c.MaxDebtToEquity != nil && !(f.DebtToEquity != nil && *f.DebtToEquity < *c.MaxDebtToEquity) {
		return false
	}
	if c.MaxPE != nil && !(f.PE != nil && *f.PE > 0 && *f.PE < *c.MaxPE) {
		return false
	}
	return true
}

// Catalog is an immutable table of strategies. It is built once and is safe
// for concurrent reads.
type Catalog struct {
	order      []ID
	strategies map[ID]Strategy
	candidates []string
}

// NewCatalog builds a catalog. Candidates is the pool screened by
// criteria-based strategies.
func NewCatalog(candidates []string, strategies ...Strategy) (*Catalog, error) {
	c := &Catalog{
		strategies: make(map[ID]Strategy, len(strategies)),
		candidates: append([]string(nil), candidates...),
	}
	for _, s := range strategies {
		if s.ID == "" {
			return nil, fmt.Errorf("strategy without id")
		}
		if _, dup := c.strategies[s.ID]; dup {
			return nil, fmt.Errorf("duplicate strategy: %s", s.ID)
		}
		if s.IsBasket() == (s.Criteria != nil) {
			return nil, fmt.Errorf("strategy %s needs exactly one of basket or criteria", s.ID)
		}
		s.Basket = append([]string(nil), s.Basket...)
		c.strategies[s.ID] = s
		c.order = append(c.order, s.ID)
	}
	return c, nil
}

// Get resolves an identifier or display name, case-insensitively.
func (c *Catalog) Get(name string) (Strategy, error) {
	key := strings.TrimSpace(name)
	if s, ok := c.strategies[ID(strings.ToLower(key))]; ok {
		return s, nil
	}
	for _, id := range c.order {
		if strings.EqualFold(c.strategies[id].Name, key) {
			return c.strategies[id], nil
		}
	}
	return Strategy{}, core.Errorf(core.ErrInvalidStrategy, "%q", name)
}

// All returns the strategies in definition order.
func (c *Catalog) All() []Strategy {
	result := make([]Strategy, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.strategies[id])
	}
	return result
}

// Candidates returns the screening pool.
func (c *Catalog) Candidates() []string {
	return append([]string(nil), c.candidates...)
}

// excluded reports whether ticker belongs to a basket strategy; basket members
// are never screened by criteria.
func (c *Catalog) excluded(ticker string) bool {
	for _, id := range c.order {
		for _, t := range c.strategies[id].Basket {
			if t == ticker {
				return true
			}
		}
	}
	return false
}

func f64(v float64) *float64 { return &v }

// IndexBasket is the fixed ETF basket of the index strategy.
var IndexBasket = []string{"VOO", "QQQ", "VTI", "BND", "IVV", "SPY"}

// DefaultCandidates is the pool screened by criteria-based strategies.
var DefaultCandidates = []string{
	"NVDA", "TSLA", "AMD", "SHOP", "SNOW",
	"AAPL", "MSFT", "GOOGL", "AMZN", "META", "JPM", "JNJ",
	"V", "PG", "MA", "HD", "CVX", "MRK", "ABBV", "PEP", "KO", "BAC", "COST", "ADBE", "CRM",
}

// DefaultCatalog returns the built-in strategies.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultCandidates,
		Strategy{
			ID:          Ethical,
			Name:        "Ethical Investing",
			Description: "Excludes energy, utilities and basic materials",
			Criteria:    &Criteria{ExcludedSectors: []string{"Energy", "Utilities", "Basic Materials"}},
		},
		Strategy{
			ID:          Growth,
			Name:        "Growth Investing",
			Description: "Revenue growth above 15%",
			Criteria:    &Criteria{MinRevenueGrowth: f64(0.15)},
		},
		Strategy{
			ID:          Index,
			Name:        "Index Investing",
			Description: "Broad market index ETFs",
			Basket:      IndexBasket,
		},
		Strategy{
			ID:          Quality,
			Name:        "Quality Investing",
			Description: "ROE above 15% and debt/equity below 50%",
			Criteria:    &Criteria{MinROE: f64(0.15), MaxDebtToEquity: f64(50)},
		},
		Strategy{
			ID:          Value,
			Name:        "Value Investing",
			Description: "Trailing P/E between 0 and 25",
			Criteria:    &Criteria{MaxPE: f64(25)},
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

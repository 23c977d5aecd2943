// Package advisor asks an LLM for a short plain-language note on a
// suggested portfolio.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/llm"
	"github.com/newthinker/folio/internal/money"
	"github.com/newthinker/folio/internal/portfolio"
)

const systemPrompt = `You are a concise investment assistant. You are given a momentum-weighted
stock portfolio built from one or two investment strategies. In at most four
sentences, describe how the money was spread, which holdings dominate and why
the momentum weighting favoured them, and mention any tickers that were left out.
Do not give personalised financial advice and do not invent data.`

// Brief is the data the commentary is written from.
type Brief struct {
	Amount     float64
	Strategies []string
	Result     portfolio.Result
	Trend      []portfolio.TrendPoint
	Exclusions []core.Exclusion
}

// Commentator writes commentary with an LLM provider.
type Commentator struct {
	llm       llm.Provider
	maxTokens int
}

// New creates a commentator. maxTokens <= 0 uses 300.
func New(provider llm.Provider, maxTokens int) *Commentator {
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &Commentator{llm: provider, maxTokens: maxTokens}
}

// Provider returns the name of the underlying LLM provider.
func (c *Commentator) Provider() string {
	return c.llm.Name()
}

// Comment returns the commentary text for b.
func (c *Commentator) Comment(ctx context.Context, b Brief) (string, error) {
	resp, err := c.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildPrompt(b)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", core.WrapError(core.ErrLLMFailed, err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", core.Errorf(core.ErrLLMFailed, "%s returned no text", c.llm.Name())
	}
	return text, nil
}

func buildPrompt(b Brief) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Investment: %s\n", money.USD(b.Amount)))
	sb.WriteString(fmt.Sprintf("## Strategies: %s\n\n", strings.Join(b.Strategies, ", ")))

	sb.WriteString("## Holdings:\n")
	for _, a := range b.Result.Allocations {
		sb.WriteString(fmt.Sprintf("- %s: weight %.2f%%, momentum score %.4f, %d shares at %s\n",
			a.Ticker, money.Percent(a.Weight), a.Score, a.Shares, money.USD(a.Price)))
	}
	sb.WriteString(fmt.Sprintf("\nInvested: %s, leftover cash: %s\n",
		money.USD(b.Result.InvestedUSD), money.USD(b.Result.LeftoverCash)))

	if n := len(b.Trend); n >= 2 {
		first, last := b.Trend[0], b.Trend[n-1]
		sb.WriteString(fmt.Sprintf("Value over the last %d trading days: %s on %s to %s on %s\n",
			n, money.USD(first.Value), first.Date.Format(core.DateLayout),
			money.USD(last.Value), last.Date.Format(core.DateLayout)))
	}

	if len(b.Exclusions) > 0 {
		sb.WriteString("\n## Left out:\n")
		for _, e := range b.Exclusions {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", e.Symbol, e.Code))
		}
	}

	return sb.String()
}

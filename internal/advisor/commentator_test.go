package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/llm"
	"github.com/newthinker/folio/internal/portfolio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLLM struct {
	response string
	err      error
	lastReq  llm.ChatRequest
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ChatResponse{Content: m.response}, nil
}

func testBrief() Brief {
	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }
	return Brief{
		Amount:     10000,
		Strategies: []string{"Growth Investing"},
		Result: portfolio.Result{
			Allocations: []portfolio.Allocation{
				{Ticker: "NVDA", Score: 1.21, Weight: 0.5734, Price: 100, Shares: 57},
				{Ticker: "AMD", Score: 0.9, Weight: 0.4265, Price: 50, Shares: 85},
			},
			InvestedUSD:  9950,
			LeftoverCash: 50,
		},
		Trend: []portfolio.TrendPoint{
			{Date: day(3), Value: 9900},
			{Date: day(4), Value: 10000},
		},
		Exclusions: []core.Exclusion{{Symbol: "SNOW", Code: "SYMBOL_NOT_FOUND"}},
	}
}

func TestComment(t *testing.T) {
	m := &mockLLM{response: "  NVDA dominates.  "}
	c := New(m, 0)

	text, err := c.Comment(context.Background(), testBrief())
	require.NoError(t, err)
	assert.Equal(t, "NVDA dominates.", text)
	assert.Equal(t, 300, m.lastReq.MaxTokens)
	assert.Equal(t, "mock", c.Provider())

	prompt := m.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "$10,000.00")
	assert.Contains(t, prompt, "Growth Investing")
	assert.Contains(t, prompt, "NVDA: weight 57.34%")
	assert.Contains(t, prompt, "leftover cash: $50.00")
	assert.Contains(t, prompt, "2024-06-04")
	assert.Contains(t, prompt, "SNOW (SYMBOL_NOT_FOUND)")
}

func TestComment_LLMError(t *testing.T) {
	c := New(&mockLLM{err: errors.New("timeout")}, 100)

	_, err := c.Comment(context.Background(), testBrief())
	assert.ErrorIs(t, err, core.ErrLLMFailed)
}

func TestComment_EmptyResponse(t *testing.T) {
	c := New(&mockLLM{response: "   "}, 100)

	_, err := c.Comment(context.Background(), testBrief())
	assert.ErrorIs(t, err, core.ErrLLMFailed)
}

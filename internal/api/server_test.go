package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/folio/internal/metrics"
	"github.com/newthinker/folio/internal/portfolio"
	"github.com/newthinker/folio/internal/strategy"
	"github.com/newthinker/folio/internal/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSuggester struct{}

func (stubSuggester) Suggest(ctx context.Context, req suggest.Request) (*suggest.Suggestion, error) {
	return &suggest.Suggestion{
		AsOf:   time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC),
		Amount: req.Amount,
		Allocations: []portfolio.Allocation{
			{Ticker: "VOO", Weight: 1, TargetUSD: req.Amount, Price: 500, Shares: int64(req.Amount / 500), SpentUSD: req.Amount},
		},
		CurrentTotalValue: req.Amount,
	}, nil
}

func newTestServer(t *testing.T, reg *metrics.Registry) *Server {
	t.Helper()
	srv, err := NewServer(Config{
		Host:        "localhost",
		Port:        0,
		CORSOrigins: []string{"https://app.example.com"},
		MetricsPath: "/metrics",
		Version:     "1.2.3",
	}, Dependencies{
		Suggester:     stubSuggester{},
		Catalog:       strategy.DefaultCatalog(),
		Metrics:       reg,
		MinInvestment: 5000,
	}, zap.NewNop())
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(Config{}, Dependencies{Catalog: strategy.DefaultCatalog()}, nil)
	assert.Error(t, err)

	_, err = NewServer(Config{}, Dependencies{Suggester: stubSuggester{}}, nil)
	assert.Error(t, err)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, nil)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestServer_Banner(t *testing.T) {
	srv := newTestServer(t, nil)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1.2.3", resp.Data["version"])
	assert.NotEmpty(t, resp.Data["message"])

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_SuggestPortfolio(t *testing.T) {
	srv := newTestServer(t, nil)

	body := bytes.NewBufferString(`{"investment_amount": 10000, "strategies": ["index"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggest_portfolio", body)
	req.Header.Set("Content-Type", "application/json")
	w := serve(srv, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(metrics.RequestIDHeader))

	var resp struct {
		Data struct {
			SuggestedHoldings []struct {
				Ticker          string `json:"ticker"`
				SharesPurchased int64  `json:"shares_purchased"`
			} `json:"suggested_holdings"`
		} `json:"data"`
		Meta struct {
			RequestID string `json:"request_id"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.SuggestedHoldings, 1)
	assert.Equal(t, int64(20), resp.Data.SuggestedHoldings[0].SharesPurchased)
	assert.Equal(t, w.Header().Get(metrics.RequestIDHeader), resp.Meta.RequestID)
}

func TestServer_SuggestRejectsWrongMethod(t *testing.T) {
	srv := newTestServer(t, nil)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/suggest_portfolio", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_Strategies(t *testing.T) {
	srv := newTestServer(t, nil)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/strategies", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"growth"`)
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/suggest_portfolio", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(srv, req)

	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/suggest_portfolio", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = serve(srv, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	srv := newTestServer(t, reg)

	serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}

func TestServer_MetricsDisabledWithoutRegistry(t *testing.T) {
	srv := newTestServer(t, nil)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/folio/internal/core"
)

const (
	chartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	summaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary"
	userAgent  = "Mozilla/5.0 (compatible; folio/1.0)"

	summaryModules = "assetProfile,financialData,summaryDetail"
)

// validSymbol matches stock symbols like AAPL, BRK.B, 0700.HK
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9-]{1,10}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return core.Errorf(core.ErrSymbolNotFound, "symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return core.Errorf(core.ErrSymbolNotFound, "symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return core.Errorf(core.ErrSymbolNotFound, "invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance provider
type Yahoo struct {
	client     *http.Client
	chartURL   string
	summaryURL string
	now        func() time.Time
}

// New creates a new Yahoo provider. A non-positive timeout defaults to 10s.
func New(timeout time.Duration) *Yahoo {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Yahoo{
		client:     &http.Client{Timeout: timeout},
		chartURL:   chartURL,
		summaryURL: summaryURL,
		now:        time.Now,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Share classes: BRK.B -> BRK-B
	if i := strings.LastIndex(symbol, "."); i > 0 && len(symbol)-i == 2 {
		return symbol[:i] + "-" + symbol[i+1:]
	}
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// get performs a GET and decodes the JSON body into dst, mapping HTTP
// failures onto collector error codes.
func (y *Yahoo) get(ctx context.Context, symbol, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return core.WrapError(core.ErrCollectorFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return core.Errorf(core.ErrCollectorFailed, "fetching %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return core.Errorf(core.ErrSymbolNotFound, "%s", symbol)
	case resp.StatusCode == http.StatusTooManyRequests:
		return core.Errorf(core.ErrRateLimited, "%s", symbol)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return core.Errorf(core.ErrCollectorFailed, "%s: unexpected status %d: %s",
			symbol, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return core.Errorf(core.ErrCollectorFailed, "decoding %s response: %w", symbol, err)
	}
	return nil
}

func (y *Yahoo) chart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/%s?%s", y.chartURL, url.PathEscape(toYahooSymbol(symbol)), params.Encode())

	var result chartResponse
	if err := y.get(ctx, symbol, u, &result); err != nil {
		return nil, err
	}
	if e := result.Chart.Error; e != nil {
		return nil, apiError(symbol, e)
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.Errorf(core.ErrSymbolNotFound, "no data for symbol: %s", symbol)
	}
	return &result.Chart.Result[0], nil
}

// FetchQuote fetches the latest regular-market price
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	r, err := y.chart(ctx, symbol, url.Values{"interval": {"1d"}, "range": {"1d"}})
	if err != nil {
		return nil, err
	}
	meta := r.Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, core.Errorf(core.ErrSymbolNotFound, "no price for symbol: %s", symbol)
	}

	return &core.Quote{
		Symbol: symbol,
		Price:  meta.RegularMarketPrice,
		Volume: meta.RegularMarketVolume,
		Time:   time.Unix(meta.RegularMarketTime, 0).UTC(),
		Source: "yahoo",
	}, nil
}

// FetchHistory fetches historical OHLCV data, oldest first. Bars without a
// close are skipped; a repeated trading day keeps the later bar.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	r, err := y.chart(ctx, symbol, url.Values{
		"interval": {toYahooInterval(interval)},
		"period1":  {fmt.Sprint(start.Unix())},
		"period2":  {fmt.Sprint(end.Unix())},
	})
	if err != nil {
		return nil, err
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, core.Errorf(core.ErrInsufficientHistory, "no bars for symbol: %s", symbol)
	}
	quotes := r.Indicators.Quote[0]

	data := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := at(quotes.Close, i)
		if c == nil {
			continue
		}
		bar := core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     orDefault(at(quotes.Open, i), *c),
			High:     orDefault(at(quotes.High, i), *c),
			Low:      orDefault(at(quotes.Low, i), *c),
			Close:    *c,
			Time:     time.Unix(ts, 0).UTC(),
		}
		if v := at(quotes.Volume, i); v != nil {
			bar.Volume = *v
		}
		if n := len(data); n > 0 && !bar.Time.After(data[n-1].Time) {
			continue
		}
		if n := len(data); n > 0 && sameDay(data[n-1].Time, bar.Time) {
			data[n-1] = bar
			continue
		}
		data = append(data, bar)
	}

	return data, nil
}

// FetchFundamental fetches sector and the ratios used for screening
func (y *Yahoo) FetchFundamental(ctx context.Context, symbol string) (*core.Fundamental, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/%s?modules=%s", y.summaryURL,
		url.PathEscape(toYahooSymbol(symbol)), url.QueryEscape(summaryModules))

	var result summaryResponse
	if err := y.get(ctx, symbol, u, &result); err != nil {
		return nil, err
	}
	if e := result.QuoteSummary.Error; e != nil {
		return nil, apiError(symbol, e)
	}
	if len(result.QuoteSummary.Result) == 0 {
		return nil, core.Errorf(core.ErrSymbolNotFound, "no fundamentals for symbol: %s", symbol)
	}

	r := result.QuoteSummary.Result[0]
	return &core.Fundamental{
		Symbol:        symbol,
		Sector:        r.AssetProfile.Sector,
		RevenueGrowth: r.FinancialData.RevenueGrowth.value(),
		ROE:           r.FinancialData.ReturnOnEquity.value(),
		DebtToEquity:  r.FinancialData.DebtToEquity.value(),
		PE:            r.SummaryDetail.TrailingPE.value(),
		Date:          y.now().UTC(),
	}, nil
}

func apiError(symbol string, e *apiErr) error {
	if strings.EqualFold(e.Code, "Not Found") {
		return core.Errorf(core.ErrSymbolNotFound, "%s: %s", symbol, e.Description)
	}
	return core.Errorf(core.ErrCollectorFailed, "yahoo error for %s: %s", symbol, e.Description)
}

func toYahooInterval(interval string) string {
	switch interval {
	case "1m", "5m", "1h", "1d", "1wk":
		return interval
	default:
		return "1d"
	}
}

func at[T any](s []*T, i int) *T {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func sameDay(a, b time.Time) bool {
	return a.Format(core.DateLayout) == b.Format(core.DateLayout)
}

// Yahoo API response types
type apiErr struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiErr       `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol              string  `json:"symbol"`
	Currency            string  `json:"currency"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	RegularMarketVolume int64   `json:"regularMarketVolume"`
	RegularMarketTime   int64   `json:"regularMarketTime"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *apiErr         `json:"error"`
	} `json:"quoteSummary"`
}

type summaryResult struct {
	AssetProfile struct {
		Sector string `json:"sector"`
	} `json:"assetProfile"`
	FinancialData struct {
		RevenueGrowth  *rawValue `json:"revenueGrowth"`
		ReturnOnEquity *rawValue `json:"returnOnEquity"`
		DebtToEquity   *rawValue `json:"debtToEquity"`
	} `json:"financialData"`
	SummaryDetail struct {
		TrailingPE *rawValue `json:"trailingPE"`
	} `json:"summaryDetail"`
}

// rawValue is Yahoo's {"raw": 0.12, "fmt": "12%"} wrapper. Missing
// values arrive as {} or are omitted.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v *rawValue) value() *float64 {
	if v == nil {
		return nil
	}
	return v.Raw
}

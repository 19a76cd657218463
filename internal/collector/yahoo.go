package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"
	_ "time/tzdata"

	"MarketScanner/internal/model"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=%s&range=%s"

// YahooProvider implements Provider using the Yahoo Finance chart API.
type YahooProvider struct {
	Client     *http.Client
	URLFormat  string            // printf format taking symbol, interval, range
	SymbolMap  map[string]string // maps internal symbol to Yahoo ticker
	MaxRetries uint64
}

// NewYahooProvider creates a Yahoo provider with optional proxy support.
func NewYahooProvider(proxyURL string, timeout time.Duration, maxRetries uint64) *YahooProvider {
	return &YahooProvider{
		Client:     newHTTPClient(proxyURL, timeout),
		URLFormat:  yahooChartURL,
		MaxRetries: maxRetries,
		SymbolMap:  IndexAliases,
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) yahooSymbol(symbol string) string {
	if mapped, ok := p.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the chart API. Null cells decode
// to nil pointers; an absent column decodes to a nil slice.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History fetches raw bars for symbol. period is a Yahoo range such as
// "5d", "60d" or "1y".
func (p *YahooProvider) History(ctx context.Context, symbol, period, interval string) (model.RawSeries, error) {
	u := fmt.Sprintf(p.URLFormat, url.PathEscape(p.yahooSymbol(symbol)), url.QueryEscape(interval), url.QueryEscape(period))
	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0")

	body, err := getWithRetry(ctx, p.Client, u, header, p.MaxRetries)
	if err != nil {
		return model.RawSeries{}, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return model.RawSeries{}, fmt.Errorf("yahoo decode %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return model.RawSeries{}, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}

	raw := model.RawSeries{Symbol: symbol, Columns: map[model.Field][]float64{}}
	if len(chart.Chart.Result) == 0 {
		return raw, nil
	}
	result := chart.Chart.Result[0]
	if result.Meta.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(result.Meta.ExchangeTimezoneName); err == nil {
			raw.Location = loc
		}
	}
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return raw, nil
	}

	n := len(result.Timestamp)
	raw.Times = make([]time.Time, n)
	for i, ts := range result.Timestamp {
		raw.Times[i] = time.Unix(ts, 0)
	}
	quote := result.Indicators.Quote[0]
	columns := map[model.Field][]*float64{
		model.FieldOpen:   quote.Open,
		model.FieldHigh:   quote.High,
		model.FieldLow:    quote.Low,
		model.FieldClose:  quote.Close,
		model.FieldVolume: quote.Volume,
	}
	for field, cells := range columns {
		if cells == nil {
			continue
		}
		raw.Columns[field] = nullableColumn(cells, n)
	}
	return raw, nil
}

func nullableColumn(cells []*float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(cells) && cells[i] != nil {
			out[i] = *cells[i]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"MarketScanner/internal/model"
)

// RESTProvider implements Provider against a generic JSON bars endpoint:
// GET {BaseURL}/api/v1/bars?symbol=..&period=..&interval=..
type RESTProvider struct {
	BaseURL    string
	APIKey     string
	Client     *http.Client
	MaxRetries uint64
}

// NewRESTProvider creates a new provider with optional proxy support.
func NewRESTProvider(baseURL, apiKey, proxyURL string, timeout time.Duration, maxRetries uint64) *RESTProvider {
	return &RESTProvider{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Client:     newHTTPClient(proxyURL, timeout),
		MaxRetries: maxRetries,
	}
}

func (p *RESTProvider) Name() string { return "rest" }

// restBar is the expected JSON shape. Null prices decode to nil.
type restBar struct {
	Timestamp int64    `json:"timestamp"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    *float64 `json:"volume"`
}

type restResponse struct {
	Timezone string    `json:"timezone"`
	Bars     []restBar `json:"bars"`
}

func (p *RESTProvider) History(ctx context.Context, symbol, period, interval string) (model.RawSeries, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("period", period)
	q.Set("interval", interval)
	endpoint := fmt.Sprintf("%s/api/v1/bars?%s", p.BaseURL, q.Encode())

	header := http.Header{}
	if p.APIKey != "" {
		header.Set("Authorization", "Bearer "+p.APIKey)
	}
	body, err := getWithRetry(ctx, p.Client, endpoint, header, p.MaxRetries)
	if err != nil {
		return model.RawSeries{}, fmt.Errorf("fetch bars %s: %w", symbol, err)
	}

	var resp restResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.RawSeries{}, fmt.Errorf("decode bars %s: %w", symbol, err)
	}

	raw := model.RawSeries{
		Symbol:  symbol,
		Times:   make([]time.Time, len(resp.Bars)),
		Columns: map[model.Field][]float64{},
	}
	if resp.Timezone != "" {
		if loc, err := time.LoadLocation(resp.Timezone); err == nil {
			raw.Location = loc
		}
	}
	for _, f := range model.RequiredFields {
		raw.Columns[f] = make([]float64, len(resp.Bars))
	}
	for i, b := range resp.Bars {
		raw.Times[i] = time.Unix(b.Timestamp, 0)
		raw.Columns[model.FieldOpen][i] = deref(b.Open)
		raw.Columns[model.FieldHigh][i] = deref(b.High)
		raw.Columns[model.FieldLow][i] = deref(b.Low)
		raw.Columns[model.FieldClose][i] = deref(b.Close)
		raw.Columns[model.FieldVolume][i] = deref(b.Volume)
	}
	return raw, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

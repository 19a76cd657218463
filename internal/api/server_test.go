package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MarketScanner/internal/collector"
	"MarketScanner/internal/metrics"
	"MarketScanner/internal/model"
	"MarketScanner/internal/orchestrator"
	"MarketScanner/internal/recorder"
	"MarketScanner/internal/strategy"
)

type fakeCycles struct {
	last *orchestrator.Cycle
	errs []model.ScanError
}

func (f *fakeCycles) Last() *orchestrator.Cycle { return f.last }
func (f *fakeCycles) Errors() []model.ScanError { return f.errs }
func (f *fakeCycles) ClearErrors()              { f.errs = nil }
func (f *fakeCycles) Count() int {
	if f.last == nil {
		return 0
	}
	return f.last.Number
}

type fakeData struct{ cleared bool }

func (f *fakeData) CacheStats() collector.CacheStats {
	return collector.CacheStats{TotalEntries: 3, ValidEntries: 2, TTL: 5 * time.Minute}
}
func (f *fakeData) ClearCache() { f.cleared = true }
func (f *fakeData) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	if symbol == "SBIN.NS" {
		return 612.5, nil
	}
	return 0, collector.ErrDataUnavailable
}
func (f *fakeData) Indices(context.Context) ([]collector.IndexQuote, error) {
	return []collector.IndexQuote{{Name: "NIFTY 50", Symbol: "^NSEI", Price: 22220, Change: 220, ChangePct: 1}}, nil
}

type fakeHistory struct {
	recorder.NoopRecorder
	counts map[string]int
}

func (f *fakeHistory) SignalCount(_ context.Context, symbol string) (int, error) {
	return f.counts[symbol], nil
}

var errBusy = errors.New("busy")

func testCycle() *orchestrator.Cycle {
	at := time.Date(2024, 3, 4, 5, 0, 0, 0, time.UTC)
	macd := model.NewResultTable(strategy.NameMACD4h, []string{"Symbol"}, at)
	macd.Records = []model.SignalRecord{
		{Symbol: "A", Kind: model.KindBearishMomentum, Score: 90},
		{Symbol: "B", Kind: model.KindBullishCrossover, Score: 20},
	}
	return &orchestrator.Cycle{
		Number:     4,
		StartedAt:  at,
		FinishedAt: at.Add(time.Minute),
		Order:      []string{strategy.NameMACD4h},
		Results:    map[string]*model.ResultTable{strategy.NameMACD4h: macd},
	}
}

func newTestServer(cycles *fakeCycles, data *fakeData, trigger TriggerFunc) *Server {
	return NewServer(":0", Deps{
		Cycles:  cycles,
		Data:    data,
		History: recorder.NewNoopRecorder(),
		Trigger: trigger,
		Metrics: metrics.New(),
		Busy:    errBusy,
	})
}

func do(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestResultsEndpoints(t *testing.T) {
	s := newTestServer(&fakeCycles{last: testCycle()}, &fakeData{}, nil)

	rec := do(s, http.MethodGet, "/api/v1/results")
	if rec.Code != http.StatusOK {
		t.Fatalf("results status %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Cycle  int         `json:"cycle"`
		Tables []tableView `json:"tables"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Cycle != 4 || len(body.Tables) != 1 || body.Tables[0].Records[0].Symbol != "A" {
		t.Errorf("unexpected body %+v", body)
	}

	rec = do(s, http.MethodGet, "/api/v1/results/macd%204h?ranked=true&limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("result status %d: %s", rec.Code, rec.Body)
	}
	var tv tableView
	if err := json.Unmarshal(rec.Body.Bytes(), &tv); err != nil {
		t.Fatal(err)
	}
	if len(tv.Records) != 1 || tv.Records[0].Symbol != "B" {
		t.Errorf("ranked view should lead with the crossover, got %+v", tv.Records)
	}

	if rec := do(s, http.MethodGet, "/api/v1/results/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown detector status %d", rec.Code)
	}
	if rec := do(s, http.MethodGet, "/api/v1/results?limit=5000"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid limit status %d", rec.Code)
	}
}

func TestResultsBeforeFirstScan(t *testing.T) {
	s := newTestServer(&fakeCycles{}, &fakeData{}, nil)
	if rec := do(s, http.MethodGet, "/api/v1/results"); rec.Code != http.StatusNotFound {
		t.Errorf("status %d", rec.Code)
	}
	rec := do(s, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz: %d %s", rec.Code, rec.Body)
	}
}

func TestCacheAndPrice(t *testing.T) {
	data := &fakeData{}
	s := newTestServer(&fakeCycles{}, data, nil)

	rec := do(s, http.MethodGet, "/api/v1/cache")
	if !strings.Contains(rec.Body.String(), `"valid_entries":2`) || !strings.Contains(rec.Body.String(), `"ttl_seconds":300`) {
		t.Errorf("cache body %s", rec.Body)
	}
	if rec := do(s, http.MethodDelete, "/api/v1/cache"); rec.Code != http.StatusNoContent || !data.cleared {
		t.Errorf("clear cache: %d cleared=%v", rec.Code, data.cleared)
	}
	if rec := do(s, http.MethodGet, "/api/v1/price/sbin.ns"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "612.5") {
		t.Errorf("price: %d %s", rec.Code, rec.Body)
	}
	if rec := do(s, http.MethodGet, "/api/v1/price/sbin"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"symbol":"SBIN.NS"`) {
		t.Errorf("bare symbol should resolve to the NSE listing: %d %s", rec.Code, rec.Body)
	}
	if rec := do(s, http.MethodGet, "/api/v1/price/NONE"); rec.Code != http.StatusNotFound {
		t.Errorf("missing price status %d", rec.Code)
	}
}

func TestScanTrigger(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"accepted", nil, http.StatusAccepted},
		{"busy", errBusy, http.StatusConflict},
		{"no detectors", orchestrator.ErrNoDetectors, http.StatusUnprocessableEntity},
		{"failure", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := func(context.Context) (*orchestrator.Cycle, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return testCycle(), nil
			}
			s := newTestServer(&fakeCycles{}, &fakeData{}, trigger)
			if rec := do(s, http.MethodPost, "/api/v1/scan"); rec.Code != tt.status {
				t.Errorf("status %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestErrorsHistoryAndMetrics(t *testing.T) {
	cycles := &fakeCycles{errs: []model.ScanError{{Detector: "MACD 4h", Message: "detector failed"}}}
	s := newTestServer(cycles, &fakeData{}, nil)

	if rec := do(s, http.MethodGet, "/api/v1/errors"); !strings.Contains(rec.Body.String(), "detector failed") {
		t.Errorf("errors body %s", rec.Body)
	}
	if rec := do(s, http.MethodGet, "/api/v1/history"); rec.Code != http.StatusOK {
		t.Errorf("history status %d", rec.Code)
	}
	rec := do(s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("metrics: %d", rec.Code)
	}
}

func TestIndicesAndSymbolHistory(t *testing.T) {
	cycles := &fakeCycles{errs: []model.ScanError{{Detector: "MACD 4h", Message: "boom"}}}
	s := NewServer(":0", Deps{
		Cycles:  cycles,
		Data:    &fakeData{},
		History: &fakeHistory{counts: map[string]int{"RELIANCE": 3}},
		Busy:    errBusy,
	})

	rec := do(s, http.MethodGet, "/api/v1/indices")
	var quotes []collector.IndexQuote
	if err := json.Unmarshal(rec.Body.Bytes(), &quotes); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || len(quotes) != 1 || quotes[0].ChangePct != 1 {
		t.Errorf("indices: %d %+v", rec.Code, quotes)
	}

	for _, target := range []string{"/api/v1/history/reliance", "/api/v1/history/RELIANCE.NS"} {
		rec := do(s, http.MethodGet, target)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"signals":3`) {
			t.Errorf("%s: %d %s", target, rec.Code, rec.Body)
		}
	}

	if rec := do(s, http.MethodDelete, "/api/v1/errors"); rec.Code != http.StatusNoContent || cycles.errs != nil {
		t.Errorf("clear errors: %d %v", rec.Code, cycles.errs)
	}
	if rec := do(s, http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("metrics without a recorder: %d", rec.Code)
	}
}

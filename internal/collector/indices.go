package collector

import (
	"context"
	"strings"

	"MarketScanner/internal/model"
)

// Index is a market index and its provider ticker.
type Index struct {
	Name   string
	Symbol string
}

// NSEIndices are the indices reported by Store.Indices, in display order.
var NSEIndices = []Index{
	{Name: "NIFTY 50", Symbol: "^NSEI"},
	{Name: "NIFTY BANK", Symbol: "^NSEBANK"},
	{Name: "SENSEX", Symbol: "^BSESN"},
	{Name: "NIFTY IT", Symbol: "^CNXIT"},
	{Name: "NIFTY AUTO", Symbol: "^CNXAUTO"},
	{Name: "NIFTY FMCG", Symbol: "^CNXFMCG"},
	{Name: "NIFTY PHARMA", Symbol: "^CNXPHARMA"},
	{Name: "NIFTY METAL", Symbol: "^CNXMETAL"},
}

// IndexAliases maps short index names to provider tickers.
var IndexAliases = map[string]string{
	"NIFTY":     "^NSEI",
	"BANKNIFTY": "^NSEBANK",
}

// IndexQuote is the latest level of an index against the previous close.
type IndexQuote struct {
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
}

// Indices quotes every index in NSEIndices from two daily bars, bypassing
// the cache. An index with a single bar reports zero change; an index that
// cannot be fetched reports zeros so the list keeps its shape. Only context
// cancellation is reported as an error.
func (s *Store) Indices(ctx context.Context) ([]IndexQuote, error) {
	out := make([]IndexQuote, 0, len(NSEIndices))
	for _, idx := range NSEIndices {
		q := IndexQuote{Name: idx.Name, Symbol: idx.Symbol}
		raw, err := s.call(ctx, idx.Symbol, "2d", "1d")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			s.log.Warn().Err(err).Str("index", idx.Name).Msg("index fetch failed")
			out = append(out, q)
			continue
		}
		bars := Clean(raw).Bars
		switch {
		case len(bars) >= 2:
			cur, prev := bars[len(bars)-1].Close, bars[len(bars)-2].Close
			q.Price = model.Round(cur, 2)
			q.Change = model.Round(cur-prev, 2)
			q.ChangePct = model.Round((cur-prev)/prev*100, 2)
		case len(bars) == 1:
			q.Price = model.Round(bars[0].Close, 2)
		default:
			s.log.Warn().Str("index", idx.Name).Msg("no index data")
		}
		out = append(out, q)
	}
	return out, nil
}

// NormalizeSymbol upper-cases a user-supplied symbol and lists bare tickers
// on NSE. Symbols with an exchange suffix, index tickers, pairs such as
// BTC-USD and known index aliases are kept as given.
func NormalizeSymbol(symbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return sym
	}
	if _, ok := IndexAliases[sym]; ok {
		return sym
	}
	if strings.ContainsAny(sym, ".^-=") {
		return sym
	}
	return sym + ".NS"
}

package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"MarketScanner/internal/collector"
	"MarketScanner/internal/model"
)

// NoSignalsText is sent when no table has a qualifying record.
const NoSignalsText = "No matching signals found."

// ChartURL returns the TradingView chart link for an NSE symbol.
func ChartURL(symbol string) string {
	return "https://www.tradingview.com/chart/?symbol=NSE:" + model.DisplaySymbol(symbol)
}

// Button is an inline keyboard URL button.
type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Message is a formatted notification ready to send.
type Message struct {
	Text    string
	Buttons [][]Button
}

// FormatScanReport builds the scan summary from tables in order, keeping only
// records the rules accept. Buttons are laid out two per row.
func FormatScanReport(tables []*model.ResultTable, rules Rules, now time.Time) Message {
	var b strings.Builder
	b.WriteString("📊 <b>Market Scanner Report</b>\n")
	b.WriteString(fmt.Sprintf("🕒 <b>Scanned at:</b> %s\n", now.In(model.IST).Format("02 Jan 2006, 03:04 PM")+" IST"))

	var buttons []Button
	sections := 0
	for _, t := range tables {
		if t.Len() == 0 {
			continue
		}
		var lines []string
		for _, rec := range t.Records {
			sym := strings.TrimSpace(model.DisplaySymbol(rec.Symbol))
			if sym == "" || !rules.Qualifies(t.Detector, rec.Kind) {
				continue
			}
			url := ChartURL(sym)
			lines = append(lines, fmt.Sprintf("• %s <a href=\"%s\">🔗 Chart</a>", html.EscapeString(sym), url))
			buttons = append(buttons, Button{Text: sym, URL: url})
		}
		if len(lines) == 0 {
			continue
		}
		sections++
		b.WriteString(fmt.Sprintf("\n<b>%s:</b>\n", html.EscapeString(rules.Label(t.Detector))))
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	if sections == 0 {
		b.WriteString("\n<i>" + NoSignalsText + "</i>\n")
	}

	var rows [][]Button
	for i := 0; i < len(buttons); i += 2 {
		end := i + 2
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return Message{Text: b.String(), Buttons: rows}
}

// Status is the scanner state rendered by FormatStatus.
type Status struct {
	Cycles     int
	LastScan   time.Time
	Signals    int
	Errors     int
	Cache      collector.CacheStats
	MarketOpen bool
	NextScan   time.Time
}

// FormatStatus summarizes the last cycle, the schedule and the cache.
func FormatStatus(st Status) string {
	const layout = "2006-01-02 15:04:05"
	var b strings.Builder
	b.WriteString("🩺 <b>Scanner Status</b>\n\n")
	if st.LastScan.IsZero() {
		b.WriteString("Last scan: never\n")
	} else {
		b.WriteString(fmt.Sprintf("Last scan: %s IST (#%d)\n", st.LastScan.In(model.IST).Format(layout), st.Cycles))
	}
	if !st.NextScan.IsZero() {
		b.WriteString(fmt.Sprintf("Next scan: %s IST\n", st.NextScan.In(model.IST).Format(layout)))
	}
	b.WriteString(fmt.Sprintf("Signals: %d | Errors: %d\n", st.Signals, st.Errors))
	b.WriteString(fmt.Sprintf("Cache: %d/%d valid (TTL %s)\n", st.Cache.ValidEntries, st.Cache.TotalEntries, st.Cache.TTL))
	status := "🔴 CLOSED"
	if st.MarketOpen {
		status = "🟢 OPEN"
	}
	b.WriteString("Market: " + status + "\n")
	return b.String()
}

// FormatIndices lists index levels with their change on the previous close.
// A zero price marks an index that could not be fetched.
func FormatIndices(quotes []collector.IndexQuote) string {
	if len(quotes) == 0 {
		return "📊 Market indices temporarily unavailable"
	}
	var b strings.Builder
	b.WriteString("📈 <b>Market Indices</b>\n\n")
	for _, q := range quotes {
		if q.Price == 0 {
			b.WriteString(fmt.Sprintf("⚪ <b>%s</b>: unavailable\n", q.Name))
			continue
		}
		mark := "🟢"
		if q.Change < 0 {
			mark = "🔴"
		}
		b.WriteString(fmt.Sprintf("%s <b>%s</b>: %.2f (%+.2f, %+.2f%%)\n", mark, q.Name, q.Price, q.Change, q.ChangePct))
	}
	return b.String()
}

// FormatErrors lists recent scan errors, newest first.
func FormatErrors(errs []model.ScanError) string {
	if len(errs) == 0 {
		return "✅ No recent errors"
	}
	var b strings.Builder
	b.WriteString("⚠️ <b>Recent Errors</b>\n\n")
	for i := len(errs) - 1; i >= 0; i-- {
		e := errs[i]
		b.WriteString(fmt.Sprintf("%s <b>%s</b>: %s\n",
			e.Time.In(model.IST).Format("15:04:05"), html.EscapeString(e.Detector), html.EscapeString(e.Message)))
	}
	return b.String()
}

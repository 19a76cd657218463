package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"MarketScanner/internal/model"
	"MarketScanner/internal/orchestrator"

	"github.com/rs/zerolog/log"
)

// ScanTimeLayout formats the Scan_Time column.
const ScanTimeLayout = "2006-01-02 15:04:05"

// Cell renders one named column of rec. Unknown columns fall back to the
// record's readings and are empty when absent.
func Cell(rec model.SignalRecord, column string) string {
	switch column {
	case "Symbol":
		return rec.Symbol
	case "Signal_Type", "Signal", "Breakout_Type":
		return string(rec.Kind)
	case "Signal_Strength", "Score", "Breakout_Strength", "Breakout_Score":
		return num(rec.Score)
	case "Current_Price", "Price":
		return num(rec.Price)
	case "Price_Change_%", "Change_%":
		return num(rec.ChangePct)
	case "Volume_Ratio":
		return num(rec.VolumeRatio)
	case "Timeframe":
		return rec.Timeframe
	case "Scan_Time":
		if rec.ScanTime.IsZero() {
			return ""
		}
		return rec.ScanTime.In(model.IST).Format(ScanTimeLayout)
	case "Stop_Loss", "Target", "Risk_Amount", "Reward_Amount", "Risk_Reward", "Risk_Reward_Ratio":
		return riskCell(rec.Risk, column)
	}
	if v, ok := rec.Readings[column]; ok {
		return num(v)
	}
	return ""
}

func riskCell(r *model.RiskPlan, column string) string {
	if r == nil {
		return ""
	}
	switch column {
	case "Stop_Loss":
		return num(r.StopLoss)
	case "Target":
		return num(r.Target)
	case "Risk_Amount":
		return num(r.RiskAmount)
	case "Reward_Amount":
		return num(r.RewardAmount)
	default:
		return r.Ratio
	}
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WriteTable writes t as CSV using the detector's column set.
func WriteTable(w io.Writer, t *model.ResultTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, rec := range t.Records {
		row := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			row[i] = Cell(rec, col)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCombined writes all tables into one CSV. Columns are the union of the
// tables' columns in first-seen order followed by Scanner.
func WriteCombined(w io.Writer, tables []*model.ResultTable) error {
	var columns []string
	seen := map[string]bool{}
	for _, t := range tables {
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, columns...), "Scanner")); err != nil {
		return err
	}
	for _, t := range tables {
		own := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			own[c] = true
		}
		for _, rec := range t.Records {
			row := make([]string, 0, len(columns)+1)
			for _, col := range columns {
				if own[col] {
					row = append(row, Cell(rec, col))
				} else {
					row = append(row, "")
				}
			}
			row = append(row, t.Detector)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Exporter writes one combined CSV per cycle into Dir.
type Exporter struct {
	Dir string
}

// FileName returns the export name for a cycle finished at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("nse_scanner_results_%s.csv", t.In(model.IST).Format("20060102_150405"))
}

// ExportCycle writes the cycle's non-empty tables and returns the file path.
// It returns an empty path when no table has records.
func (e *Exporter) ExportCycle(_ context.Context, c *orchestrator.Cycle) (string, error) {
	var tables []*model.ResultTable
	for _, t := range c.Tables() {
		if t.Len() > 0 {
			tables = append(tables, t)
		}
	}
	if len(tables) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.Dir, FileName(c.FinishedAt))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export: %w", err)
	}
	if err := WriteCombined(f, tables); err != nil {
		f.Close()
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	log.Info().Str("path", path).Int("tables", len(tables)).Msg("scan results exported")
	return path, nil
}

// Hook adapts the exporter to a post-cycle orchestrator hook.
func (e *Exporter) Hook() orchestrator.Hook {
	return orchestrator.HookFunc{Label: "csv", Fn: func(ctx context.Context, c *orchestrator.Cycle) error {
		_, err := e.ExportCycle(ctx, c)
		return err
	}}
}

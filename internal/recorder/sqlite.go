package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"MarketScanner/internal/orchestrator"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists scan cycles to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL lets dashboards read while the scanner writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			number      INTEGER NOT NULL,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			detectors   TEXT,
			signals     INTEGER,
			errors      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_started ON scan_cycles(started_at)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id      INTEGER NOT NULL REFERENCES scan_cycles(id),
			detector      TEXT NOT NULL,
			symbol        TEXT NOT NULL,
			signal_type   TEXT NOT NULL,
			score         REAL,
			price         REAL,
			change_pct    REAL,
			volume_ratio  REAL,
			timeframe     TEXT,
			readings      TEXT,
			stop_loss     REAL,
			target        REAL,
			risk_reward   TEXT,
			scan_time     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol, scan_time)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_cycle ON signals(cycle_id)`,

		`CREATE TABLE IF NOT EXISTS scan_errors (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id  INTEGER NOT NULL REFERENCES scan_cycles(id),
			timestamp INTEGER NOT NULL,
			detector  TEXT,
			message   TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordCycle writes the cycle, its signals and its errors in one transaction.
func (r *SQLiteRecorder) RecordCycle(ctx context.Context, c *orchestrator.Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	detectors, err := json.Marshal(c.Order)
	if err != nil {
		return fmt.Errorf("marshal detectors: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO scan_cycles
		(number, started_at, finished_at, detectors, signals, errors)
		VALUES (?,?,?,?,?,?)`,
		c.Number, c.StartedAt.Unix(), c.FinishedAt.Unix(), string(detectors), c.TotalSignals(), len(c.Errors),
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	cycleID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("cycle id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO signals
		(cycle_id, detector, symbol, signal_type, score, price, change_pct, volume_ratio,
		 timeframe, readings, stop_loss, target, risk_reward, scan_time)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare signals: %w", err)
	}
	defer stmt.Close()

	for _, t := range c.Tables() {
		for _, rec := range t.Records {
			readings, err := json.Marshal(rec.Readings)
			if err != nil {
				return fmt.Errorf("marshal readings: %w", err)
			}
			var stop, target sql.NullFloat64
			var ratio sql.NullString
			if rec.Risk != nil {
				stop = sql.NullFloat64{Float64: rec.Risk.StopLoss, Valid: true}
				target = sql.NullFloat64{Float64: rec.Risk.Target, Valid: true}
				ratio = sql.NullString{String: rec.Risk.Ratio, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				cycleID, t.Detector, rec.Symbol, string(rec.Kind), rec.Score, rec.Price, rec.ChangePct, rec.VolumeRatio,
				rec.Timeframe, string(readings), stop, target, ratio, rec.ScanTime.Unix(),
			); err != nil {
				return fmt.Errorf("insert signal %s/%s: %w", t.Detector, rec.Symbol, err)
			}
		}
	}

	for _, e := range c.Errors {
		if _, err := tx.ExecContext(ctx, `INSERT INTO scan_errors
			(cycle_id, timestamp, detector, message) VALUES (?,?,?,?)`,
			cycleID, e.Time.Unix(), e.Detector, e.Message,
		); err != nil {
			return fmt.Errorf("insert error: %w", err)
		}
	}
	return tx.Commit()
}

// RecentCycles returns up to limit cycles, newest first.
func (r *SQLiteRecorder) RecentCycles(ctx context.Context, limit int) ([]CycleSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, number, started_at, finished_at, signals, errors
		FROM scan_cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleSummary
	for rows.Next() {
		var (
			s                 CycleSummary
			started, finished int64
		)
		if err := rows.Scan(&s.ID, &s.Number, &started, &finished, &s.Signals, &s.Errors); err != nil {
			return nil, fmt.Errorf("scan cycle row: %w", err)
		}
		s.StartedAt = time.Unix(started, 0).UTC()
		s.FinishedAt = time.Unix(finished, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// SignalCount returns the number of stored signals for symbol.
func (r *SQLiteRecorder) SignalCount(ctx context.Context, symbol string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signals WHERE symbol = ?`, symbol).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"valuesift/internal/util"
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id              TEXT PRIMARY KEY,
		created_at      INTEGER NOT NULL,
		buy_date        TEXT NOT NULL,
		sell_date       TEXT NOT NULL,
		options         TEXT NOT NULL,
		ignored         TEXT NOT NULL DEFAULT '',
		considered      INTEGER NOT NULL,
		sufficient_data INTEGER NOT NULL,
		investable      INTEGER NOT NULL,
		reached         INTEGER NOT NULL,
		gain_at_end     INTEGER NOT NULL,
		loss_at_end     INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS run_outcomes (
		run_id    TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
		symbol    TEXT NOT NULL,
		outcome   TEXT NOT NULL,
		buy_price REAL,
		price     REAL,
		PRIMARY KEY (run_id, symbol)
	)`,
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// tables if needed and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps writes serialised.
	db.SetMaxOpenConns(1)

	for _, stmt := range append([]string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}, schema...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run and its outcomes in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, created_at, buy_date, sell_date, options, ignored,
		 considered, sufficient_data, investable, reached, gain_at_end, loss_at_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixMilli(),
		run.BuyDate.Format(util.DateLayout), run.SellDate.Format(util.DateLayout),
		run.Options, run.Ignored,
		run.Considered, run.SufficientData, run.Investable,
		run.Reached, run.GainAtEnd, run.LossAtEnd,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_outcomes
		(run_id, symbol, outcome, buy_price, price) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, o := range run.Outcomes {
		if _, err := stmt.ExecContext(ctx, run.ID, o.Symbol, o.Outcome, nullable(o.BuyPrice), nullable(o.Price)); err != nil {
			return fmt.Errorf("inserting outcome %s/%s: %w", run.ID, o.Symbol, err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, created_at, buy_date, sell_date, options, ignored,
	considered, sufficient_data, investable, reached, gain_at_end, loss_at_end`

// GetRun retrieves a single run by id, including its outcomes ordered by
// symbol.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT symbol, outcome, buy_price, price
		FROM run_outcomes WHERE run_id = ? ORDER BY symbol`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var o RunOutcome
		var buy, price sql.NullFloat64
		if err := rows.Scan(&o.Symbol, &o.Outcome, &buy, &price); err != nil {
			return nil, err
		}
		o.BuyPrice, o.Price = fromNullable(buy), fromNullable(price)
		run.Outcomes = append(run.Outcomes, o)
	}
	return run, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// nullable maps the NaN sentinel to NULL; SQLite has no NaN.
func nullable(v float32) sql.NullFloat64 {
	if v != v {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(v), Valid: true}
}

func fromNullable(v sql.NullFloat64) float32 {
	if !v.Valid {
		return float32(math.NaN())
	}
	return float32(v.Float64)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run       Run
		createdAt int64
		buy, sell string
	)
	err := row.Scan(&run.ID, &createdAt, &buy, &sell, &run.Options, &run.Ignored,
		&run.Considered, &run.SufficientData, &run.Investable,
		&run.Reached, &run.GainAtEnd, &run.LossAtEnd)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.UnixMilli(createdAt).UTC()
	if run.BuyDate, err = util.ParseDate(buy); err != nil {
		return nil, fmt.Errorf("run %s buy_date: %w", run.ID, err)
	}
	if run.SellDate, err = util.ParseDate(sell); err != nil {
		return nil, fmt.Errorf("run %s sell_date: %w", run.ID, err)
	}
	return &run, nil
}

// Package sqlite implements the run ledger on an embedded SQLite database
// (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"etlcore/internal/storage"
)

// Config holds SQLite ledger configuration derived from storage.Config.
type Config struct {
	// DSN is a file path or URI, e.g. "runs.db" or "file:runs.db?_pragma=busy_timeout(5000)".
	DSN string

	// Table receives one row per run.
	Table string
}

// Repository writes run records with plain INSERTs.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens the database and pings it, returning a close func.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// Several pipelines may finish at once; a single connection serializes
	// writers instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { db.Close() }, nil
}

func quoteIdent(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

// CreateTableSQL returns the ledger DDL for table.
func CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT PRIMARY KEY,
	job TEXT NOT NULL,
	source TEXT NOT NULL,
	status TEXT NOT NULL,
	message TEXT,
	output_path TEXT,
	rows INTEGER NOT NULL,
	columns INTEGER NOT NULL,
	quality_score REAL,
	started_at TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL
)`, quoteIdent(table))
}

func (r *Repository) EnsureTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, CreateTableSQL(r.cfg.Table)); err != nil {
		return fmt.Errorf("sqlite: create %s: %w", r.cfg.Table, err)
	}
	return nil
}

func (r *Repository) RecordRun(ctx context.Context, rec storage.RunRecord) error {
	cols := make([]string, len(storage.LedgerColumns))
	marks := make([]string, len(storage.LedgerColumns))
	for i, c := range storage.LedgerColumns {
		cols[i] = quoteIdent(c)
		marks[i] = "?"
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(r.cfg.Table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := r.db.ExecContext(ctx, q, rec.Values()...); err != nil {
		return fmt.Errorf("sqlite: insert run %s: %w", rec.RunID, err)
	}
	return nil
}

// CountRuns returns the number of recorded runs for job.
func (r *Repository) CountRuns(ctx context.Context, job string) (int, error) {
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE job = ?", quoteIdent(r.cfg.Table))
	if err := r.db.QueryRowContext(ctx, q, job).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count runs: %w", err)
	}
	return n, nil
}

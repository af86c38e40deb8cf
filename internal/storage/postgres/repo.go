// Package postgres implements the run ledger on Postgres using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"etlcore/internal/storage"
)

// Config holds Postgres ledger configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // optionally schema-qualified, e.g. "ops.etl_runs"
}

// execer is the subset of *pgxpool.Pool used by the repository.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	db  execer
	cfg Config
}

// NewRepository constructs a Repository and returns a close func.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Repository{db: pool, cfg: cfg}, func() { pool.Close() }, nil
}

// splitFQN turns "schema.table" into a pgx.Identifier.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}

// CreateTableSQL returns the ledger DDL for table.
func CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT PRIMARY KEY,
	job TEXT NOT NULL,
	source TEXT NOT NULL,
	status TEXT NOT NULL,
	message TEXT,
	output_path TEXT,
	rows BIGINT NOT NULL,
	columns BIGINT NOT NULL,
	quality_score DOUBLE PRECISION,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
)`, splitFQN(table).Sanitize())
}

// InsertSQL returns the parameterized insert for table.
func InsertSQL(table string) string {
	cols := make([]string, len(storage.LedgerColumns))
	marks := make([]string, len(storage.LedgerColumns))
	for i, c := range storage.LedgerColumns {
		cols[i] = pgx.Identifier{c}.Sanitize()
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		splitFQN(table).Sanitize(), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func (r *Repository) EnsureTable(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, CreateTableSQL(r.cfg.Table)); err != nil {
		return fmt.Errorf("postgres: create %s: %w", r.cfg.Table, err)
	}
	return nil
}

func (r *Repository) RecordRun(ctx context.Context, rec storage.RunRecord) error {
	if _, err := r.db.Exec(ctx, InsertSQL(r.cfg.Table), rec.Values()...); err != nil {
		return fmt.Errorf("postgres: insert run %s: %w", rec.RunID, err)
	}
	return nil
}

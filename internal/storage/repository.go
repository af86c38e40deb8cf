package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// RunRecord is one row of the run ledger.
type RunRecord struct {
	RunID        string
	Job          string
	Source       string
	Status       string // "success" or "error"
	Message      string
	OutputPath   string
	Rows         int
	Columns      int
	QualityScore float64
	StartedAt    time.Time
	Duration     time.Duration
}

// Repository persists run summaries. Backends register a Factory under a
// kind ("sqlite", "postgres"); callers stay backend-agnostic via New.
type Repository interface {
	// EnsureTable creates the ledger table when it does not exist.
	EnsureTable(ctx context.Context) error
	RecordRun(ctx context.Context, rec RunRecord) error
	Close()
}

// Config selects and configures a ledger backend.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds or replaces the factory for kind. Backends call it from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens the Repository registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported ledger kind %q (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("storage: ledger table must not be empty")
	}
	return f(ctx, cfg)
}

// LedgerColumns is the column order used by every backend.
var LedgerColumns = []string{
	"run_id", "job", "source", "status", "message", "output_path",
	"rows", "columns", "quality_score", "started_at", "duration_ms",
}

// Values returns rec aligned to LedgerColumns.
func (rec RunRecord) Values() []any {
	return []any{
		rec.RunID, rec.Job, rec.Source, rec.Status, rec.Message, rec.OutputPath,
		int64(rec.Rows), int64(rec.Columns), rec.QualityScore,
		rec.StartedAt.UTC(), rec.Duration.Milliseconds(),
	}
}

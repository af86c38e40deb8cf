package etl

import (
	"context"
	"strings"

	"etlcore/internal/config"
	"etlcore/internal/storage"
)

// OpenLedger opens the configured run ledger and creates its table. It
// returns nil, nil when no ledger kind is configured. Backends must be
// registered, e.g. by importing etlcore/internal/storage/all.
func OpenLedger(ctx context.Context, cfg config.Ledger) (storage.Repository, error) {
	if strings.TrimSpace(cfg.Kind) == "" {
		return nil, nil
	}
	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Kind, DSN: cfg.DSN, Table: cfg.Table})
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureTable(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

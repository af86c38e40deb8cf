// Package all registers every built-in ledger backend with the storage
// factory. Import it for side effects:
//
//	import _ "etlcore/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "runs.db", Table: "etl_runs"})
package all

import (
	_ "etlcore/internal/storage/postgres"
	_ "etlcore/internal/storage/sqlite"
)

package etl

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"etlcore/internal/datasource"
	"etlcore/internal/parser"
	"etlcore/internal/storage"
)

// SourceResolver turns an input reference into a readable local Source. The
// returned cleanup is always non-nil. datasource.Resolver implements it.
type SourceResolver interface {
	Resolve(ctx context.Context, ref string) (datasource.Source, func(), error)
}

// Uploader copies a local artifact to a remote destination and returns its
// final location. *s3.Uploader implements it.
type Uploader interface {
	Upload(ctx context.Context, localPath, dest string) (string, error)
}

// ParquetEngine reads and writes Parquet files. *duck.Engine implements it.
type ParquetEngine interface {
	parser.ParquetReader
	storage.ParquetWriter
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock replaces time.Now for artifact names and run timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLedger records a summary row per Run. The pipeline does not close it.
func WithLedger(r storage.Repository) Option {
	return func(p *Pipeline) { p.ledger = r }
}

// WithJob overrides the job name from the config.
func WithJob(job string) Option {
	return func(p *Pipeline) {
		if job != "" {
			p.job = job
		}
	}
}

// WithSourceOpener replaces the default resolver, which reads local paths
// and downloads http(s) URLs with the retry settings from config.Input.
func WithSourceOpener(r SourceResolver) Option {
	return func(p *Pipeline) { p.sources = r }
}

// WithUploader sets the uploader for s3:// destinations. Without it one is
// built from config.S3 on first use.
func WithUploader(u Uploader) Option {
	return func(p *Pipeline) { p.uploader = u }
}

// WithParquetEngine shares one engine for Parquet input and output. Without
// it each Parquet read or write opens a short-lived engine.
func WithParquetEngine(e ParquetEngine) Option {
	return func(p *Pipeline) { p.parquet = e }
}

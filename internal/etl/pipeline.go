package etl

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"etlcore/internal/config"
	"etlcore/internal/dataset"
	"etlcore/internal/datasource"
	"etlcore/internal/datasource/httpds"
	"etlcore/internal/format"
	"etlcore/internal/logging"
	"etlcore/internal/metrics"
	"etlcore/internal/parser"
	"etlcore/internal/storage"
	"etlcore/internal/storage/s3"
	"etlcore/internal/transformer"
	"etlcore/internal/transformer/builtin"
	"etlcore/internal/validator"
)

// Pipeline owns one dataset and the configuration it is processed with.
type Pipeline struct {
	cfg      config.Pipeline
	job      string
	log      logrus.FieldLogger
	now      func() time.Time
	sources  SourceResolver
	parquet  ParquetEngine
	uploader Uploader
	ledger   storage.Repository

	reader       parser.Reader
	schemaSpec   validator.SchemaSpec
	quality      validator.Quality
	completeness validator.Completeness

	state       State
	raw         *dataset.Dataset
	validated   *dataset.Dataset
	transformed *dataset.Dataset
	results     *ValidationResults
	coercions   []builtin.Coercion
	outputPath  string
}

// New returns an empty pipeline. cfg is copied.
func New(cfg config.Pipeline, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: cfg.Clone(),
		job: cfg.Job,
		log: logging.Discard(),
		now: time.Now,
	}
	if p.job == "" {
		p.job = "etl"
	}
	for _, o := range opts {
		o(p)
	}
	if p.sources == nil {
		p.sources = datasource.Resolver{Client: httpds.NewClient(httpds.Config{
			Timeout:    time.Duration(p.cfg.Input.HTTPTimeoutSec) * time.Second,
			MaxRetries: p.cfg.Input.HTTPRetries,
		})}
	}
	p.reader = parser.Reader{Input: p.cfg.Input}
	if p.parquet != nil {
		p.reader.Parquet = p.parquet
	}

	spec, unknown := validator.SchemaSpecFrom(p.cfg.Schema)
	for _, name := range unknown {
		p.log.WithFields(logrus.Fields{"column": name, "type": p.cfg.Schema.ColumnTypes[name]}).
			Warn("schema: unknown column type ignored")
	}
	p.schemaSpec = spec
	p.quality = validator.Quality{OutlierDetection: p.cfg.Quality.OutlierDetection}
	return p
}

// NewFromFile loads the config at path over the defaults. A file that cannot
// be used is logged as a warning and the defaults apply.
func NewFromFile(path string, opts ...Option) (*Pipeline, error) {
	cfg, err := config.Load(path)
	var warn *config.LoadWarning
	if err != nil && !errors.As(err, &warn) {
		return nil, err
	}
	p := New(cfg, opts...)
	if warn != nil {
		p.log.WithError(warn.Err).WithField("path", warn.Path).Warn("config: using defaults")
	}
	return p, nil
}

func (p *Pipeline) Config() config.Pipeline { return p.cfg.Clone() }
func (p *Pipeline) Job() string             { return p.job }
func (p *Pipeline) State() State            { return p.state }

// Raw, Validated and Transformed return the stored dataset slots, or nil.
// Callers must not modify them.
func (p *Pipeline) Raw() *dataset.Dataset         { return p.raw }
func (p *Pipeline) Validated() *dataset.Dataset   { return p.validated }
func (p *Pipeline) Transformed() *dataset.Dataset { return p.transformed }

// ValidationResults returns the last validation reports, or nil.
func (p *Pipeline) ValidationResults() *ValidationResults { return p.results }

// Coercions returns the datetime coercion outcome per text column from the
// last Transform.
func (p *Pipeline) Coercions() []builtin.Coercion { return p.coercions }

// OutputPath returns where the last Persist wrote.
func (p *Pipeline) OutputPath() string { return p.outputPath }

// Reset discards all stored data and returns to StateEmpty.
func (p *Pipeline) Reset() {
	p.state = StateEmpty
	p.raw, p.validated, p.transformed = nil, nil, nil
	p.results = nil
	p.coercions = nil
	p.outputPath = ""
}

func (p *Pipeline) require(op string, ok bool, need string) error {
	if p.state == StateError || !ok {
		if p.state == StateError {
			need = "a previous stage failed (call Reset)"
		}
		return &PreconditionError{Op: op, State: p.state, Need: need}
	}
	return nil
}

func (p *Pipeline) fail(step string, err error) {
	p.state = StateError
	p.log.WithError(err).WithField("step", step).Error("stage failed")
}

// Load reads source, a local path or http(s) URL, choosing the reader by
// extension. It requires an empty pipeline.
func (p *Pipeline) Load(ctx context.Context, source string) (*dataset.Dataset, error) {
	if err := p.require("load", p.state == StateEmpty, "pipeline already holds data (call Reset)"); err != nil {
		return nil, err
	}
	start := time.Now()
	ds, err := p.load(ctx, source)
	metrics.RecordStep(p.job, "load", err, time.Since(start))
	if err != nil {
		p.fail("load", err)
		return nil, err
	}
	p.raw = ds
	p.state = StateLoaded
	metrics.RecordRows(p.job, "loaded", ds.Rows())
	p.log.WithFields(logrus.Fields{"source": source, "rows": ds.Rows(), "columns": ds.Width()}).Info("loaded data")
	return ds, nil
}

func (p *Pipeline) load(ctx context.Context, source string) (*dataset.Dataset, error) {
	// reject unknown extensions before any download
	if _, err := format.FromPath(source); err != nil {
		return nil, err
	}
	src, cleanup, err := p.sources.Resolve(ctx, source)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	if n, err := src.Size(); err == nil {
		p.log.WithFields(logrus.Fields{"path": src.Path(), "size": humanize.Bytes(uint64(n))}).Debug("reading input")
	}
	return p.reader.Read(ctx, src)
}

// Validate runs the schema, quality and completeness checks. The schema
// check works on a copy of the raw data, so categorical coercion never
// touches Raw. Only a valid schema stores the validated dataset and moves
// to StateValidated; otherwise the reports are kept and the state stays
// Loaded.
func (p *Pipeline) Validate() (*ValidationResults, error) {
	if err := p.require("validate", p.raw != nil, "no data loaded"); err != nil {
		return nil, err
	}
	start := time.Now()
	candidate := p.raw.Clone()
	res := &ValidationResults{
		Schema:       validator.Schema{}.Validate(candidate, p.schemaSpec),
		Quality:      p.quality.Check(p.raw),
		Completeness: p.completeness.Analyze(p.raw),
	}
	metrics.RecordStep(p.job, "validate", nil, time.Since(start))

	p.results = res
	p.validated, p.transformed = nil, nil
	p.state = StateLoaded
	entry := p.log.WithFields(logrus.Fields{
		"quality_score": res.Quality.QualityScore,
		"completeness":  res.Completeness.OverallCompleteness,
	})
	if !res.Schema.IsValid {
		entry.WithField("errors", res.Schema.Errors).Warn("data validation failed")
		return res, nil
	}
	p.validated = candidate
	p.state = StateValidated
	entry.Info("data validation passed")
	return res, nil
}

// Transform applies datetime coercion and the configured feature transforms
// to the validated dataset.
func (p *Pipeline) Transform() (*dataset.Dataset, error) {
	if err := p.require("transform", p.validated != nil, "no validated data"); err != nil {
		return nil, err
	}
	var tags []builtin.Coercion
	chain := transformer.Plan(p.cfg.Transformations, func(c []builtin.Coercion) { tags = c })

	start := time.Now()
	out, err := chain.Apply(p.validated)
	metrics.RecordStep(p.job, "transform", err, time.Since(start))
	if err != nil {
		p.fail("transform", err)
		return nil, err
	}
	for _, t := range tags {
		if t.OK {
			p.log.WithFields(logrus.Fields{"column": t.Column, "layout": t.Layout}).Debug("coerced to datetime")
		}
	}
	p.coercions = tags
	p.transformed = out
	p.outputPath = ""
	p.state = StateTransformed
	p.log.WithFields(logrus.Fields{
		"stages":  chain.Names(),
		"rows":    out.Rows(),
		"columns": out.Width(),
	}).Info("transformed data")
	return out, nil
}

// Persist writes the transformed dataset in output.format. An empty
// destination means output.destination. A destination that is a directory
// gets a timestamped file name; s3:// destinations are written locally and
// uploaded.
func (p *Pipeline) Persist(ctx context.Context, destination string) (string, error) {
	if err := p.require("persist", p.transformed != nil, "no transformed data"); err != nil {
		return "", err
	}
	start := time.Now()
	out, err := p.persist(ctx, destination)
	metrics.RecordStep(p.job, "persist", err, time.Since(start))
	if err != nil {
		p.fail("persist", err)
		return "", err
	}
	p.outputPath = out
	p.state = StatePersisted
	metrics.RecordRows(p.job, "persisted", p.transformed.Rows())
	return out, nil
}

func (p *Pipeline) persist(ctx context.Context, destination string) (string, error) {
	f, err := format.ParseOutput(p.cfg.Output.Format)
	if err != nil {
		return "", err
	}
	var pq storage.ParquetWriter
	if p.parquet != nil {
		pq = p.parquet
	}
	w, err := storage.WriterFor(f, pq)
	if err != nil {
		return "", err
	}

	dest := destination
	if dest == "" {
		dest = p.cfg.Output.Destination
	}
	target, err := storage.ResolveDestination(dest, f, p.now())
	if err != nil {
		return "", err
	}
	if storage.IsS3(target) {
		return p.upload(ctx, w, target)
	}

	p.log.WithField("path", target).Info("saving processed data")
	if err := w.WriteFile(ctx, p.transformed, target); err != nil {
		return "", err
	}
	if fi, err := os.Stat(target); err == nil {
		p.log.WithFields(logrus.Fields{"path": target, "size": humanize.Bytes(uint64(fi.Size()))}).Debug("artifact written")
	}
	return target, nil
}

func (p *Pipeline) upload(ctx context.Context, w storage.Writer, target string) (string, error) {
	if p.uploader == nil {
		u, err := s3.NewUploader(ctx, p.cfg.S3)
		if err != nil {
			return "", err
		}
		p.uploader = u
	}
	tmp, err := os.MkdirTemp("", "etl-output-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmp)

	local := filepath.Join(tmp, path.Base(target))
	if err := w.WriteFile(ctx, p.transformed, local); err != nil {
		return "", err
	}
	p.log.WithField("destination", target).Info("uploading processed data")
	return p.uploader.Upload(ctx, local, target)
}

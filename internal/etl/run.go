package etl

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"etlcore/internal/metrics"
	"etlcore/internal/storage"
)

// RunResult summarizes one Run. Counts and OutputPath are set only on
// success; ValidationResults is set whenever validation ran.
type RunResult struct {
	RunID             string             `json:"run_id"`
	Source            string             `json:"source"`
	Status            string             `json:"status"`
	Message           string             `json:"message"`
	OutputPath        string             `json:"output_path,omitempty"`
	ValidationResults *ValidationResults `json:"validation_results,omitempty"`
	RowsProcessed     int                `json:"rows_processed,omitempty"`
	ColumnsProcessed  int                `json:"columns_processed,omitempty"`
	Duration          time.Duration      `json:"duration_ns"`
}

// OK reports whether the run succeeded.
func (r RunResult) OK() bool { return r.Status == StatusSuccess }

// Run resets the pipeline and drives source through every stage, stopping at
// the first failure. An invalid schema stops the run with
// MsgValidationFailed. Errors and panics become an error result; Run itself
// never fails.
func (p *Pipeline) Run(ctx context.Context, source, destination string) (res RunResult) {
	started := p.now()
	res = RunResult{RunID: uuid.NewString(), Source: source}
	log := p.log.WithFields(logrus.Fields{"run_id": res.RunID, "job": p.job})

	defer func() {
		if r := recover(); r != nil {
			p.state = StateError
			res.Status, res.Message = StatusError, fmt.Sprintf("panic: %v", r)
			res.OutputPath, res.RowsProcessed, res.ColumnsProcessed = "", 0, 0
			log.WithField("stack", string(debug.Stack())).Error("ETL pipeline panic")
		}
		res.Duration = p.now().Sub(started)
		p.finish(ctx, log, started, res)
	}()

	p.Reset()
	log.WithField("source", source).Info("ETL pipeline started")

	if _, err := p.Load(ctx, source); err != nil {
		return p.errorResult(log, res, err)
	}
	vr, err := p.Validate()
	if err != nil {
		return p.errorResult(log, res, err)
	}
	res.ValidationResults = vr
	if !vr.Schema.IsValid {
		res.Status, res.Message = StatusError, MsgValidationFailed
		log.Error(MsgValidationFailed)
		return res
	}
	out, err := p.Transform()
	if err != nil {
		return p.errorResult(log, res, err)
	}
	path, err := p.Persist(ctx, destination)
	if err != nil {
		return p.errorResult(log, res, err)
	}

	res.Status, res.Message = StatusSuccess, MsgSuccess
	res.OutputPath = path
	res.RowsProcessed = out.Rows()
	res.ColumnsProcessed = out.Width()
	return res
}

func (p *Pipeline) errorResult(log logrus.FieldLogger, res RunResult, err error) RunResult {
	res.Status, res.Message = StatusError, err.Error()
	log.WithError(err).Error("ETL pipeline error")
	return res
}

// finish emits run metrics and the ledger row. Ledger failures are logged
// and do not change the result.
func (p *Pipeline) finish(ctx context.Context, log logrus.FieldLogger, started time.Time, res RunResult) {
	score, scored := 0.0, false
	if res.ValidationResults != nil {
		score, scored = res.ValidationResults.Quality.QualityScore, true
	}
	metrics.RecordRun(p.job, res.Status, score, scored)

	log.WithFields(logrus.Fields{
		"status":   res.Status,
		"rows":     res.RowsProcessed,
		"columns":  res.ColumnsProcessed,
		"duration": res.Duration.Truncate(time.Millisecond),
	}).Info("ETL pipeline finished")

	if p.ledger == nil {
		return
	}
	rec := storage.RunRecord{
		RunID:        res.RunID,
		Job:          p.job,
		Source:       res.Source,
		Status:       res.Status,
		Message:      res.Message,
		OutputPath:   res.OutputPath,
		Rows:         res.RowsProcessed,
		Columns:      res.ColumnsProcessed,
		QualityScore: score,
		StartedAt:    started,
		Duration:     res.Duration,
	}
	if err := p.ledger.RecordRun(ctx, rec); err != nil {
		log.WithError(err).Warn("ledger: record run failed")
	}
}

// Package metrics records pipeline metrics through a pluggable Backend. The
// default backend is a no-op, so callers never need to check whether metrics
// are configured. Concrete backends live in subpackages (prompush, datadog).
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration or score sample.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes buffered metrics (e.g. to a Pushgateway).
	Flush() error
}

// Metric names shared with the backends.
const (
	StepTotal    = "etl_step_total"
	StepDuration = "etl_step_duration_seconds"
	RowsTotal    = "etl_rows_total"
	RunsTotal    = "etl_runs_total"
	QualityScore = "etl_quality_score"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. Passing nil keeps the current backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error { return current().Flush() }

// RecordStep counts one execution of a pipeline stage (load, validate,
// transform, persist) and records its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds delta rows of the given kind ("loaded", "persisted").
func RecordRows(job, kind string, delta int) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordRun counts a finished run by status and, when the quality checker
// ran, samples its score.
func RecordRun(job, status string, score float64, scored bool) {
	b := current()
	b.IncCounter(RunsTotal, 1, Labels{"job": job, "status": status})
	if scored {
		b.ObserveHistogram(QualityScore, score, Labels{"job": job})
	}
}

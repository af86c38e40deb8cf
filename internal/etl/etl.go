// Package etl drives one dataset through load, validate, transform and
// persist.
//
// A Pipeline is a small state machine:
//
//	Empty -> Loaded -> Validated -> Transformed -> Persisted
//
// with Error reachable from any stage that fails. Stages may be called one by
// one, or all at once through Run, which never returns an error: every fault
// becomes a RunResult with Status "error".
//
// A Pipeline is not safe for concurrent use. Independent pipelines share no
// mutable state and may run in parallel.
package etl

import (
	"fmt"

	"etlcore/internal/validator"
)

// State is the position of a Pipeline in its lifecycle.
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StateValidated
	StateTransformed
	StatePersisted
	StateError
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateValidated:
		return "validated"
	case StateTransformed:
		return "transformed"
	case StatePersisted:
		return "persisted"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// PreconditionError is returned when a stage is called before the stage it
// depends on has completed, or after the pipeline entered StateError. The
// pipeline state is left unchanged.
type PreconditionError struct {
	Op    string // stage that was called
	State State  // state at the time of the call
	Need  string // what the stage was missing
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("etl: cannot %s in state %s: %s", e.Op, e.State, e.Need)
}

// ValidationResults groups the three validation reports. Only Schema gates
// the pipeline.
type ValidationResults struct {
	Schema       validator.SchemaReport       `json:"schema"`
	Quality      validator.QualityReport      `json:"quality"`
	Completeness validator.CompletenessReport `json:"completeness"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Messages used in run results.
const (
	MsgSuccess          = "ETL pipeline completed successfully"
	MsgValidationFailed = "Data validation failed"
)

// Package transformer composes the feature-transform stages into an ordered
// chain. The stages themselves live in transformer/builtin.
package transformer

import (
	"fmt"

	"etlcore/internal/config"
	"etlcore/internal/dataset"
	"etlcore/internal/transformer/builtin"
)

// Stage is one dataset-to-dataset step. Apply must not modify its input; it
// returns a new dataset or an error.
type Stage interface {
	Name() string
	Apply(*dataset.Dataset) (*dataset.Dataset, error)
}

// Chain is an ordered list of stages.
type Chain []Stage

// Apply runs the stages in order and stops at the first error, which names
// the failing stage.
func (c Chain) Apply(in *dataset.Dataset) (*dataset.Dataset, error) {
	out := in
	for _, s := range c {
		next, err := s.Apply(out)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
		out = next
	}
	return out, nil
}

// Names lists the stage names in order.
func (c Chain) Names() []string {
	out := make([]string, len(c))
	for i, s := range c {
		out[i] = s.Name()
	}
	return out
}

// Plan builds the transform chain for cfg. Datetime coercion always runs
// first; then temporal extraction, normalization and one-hot encoding run
// in that order when enabled. Temporal features must exist before
// normalization so they are scaled too, and one-hot runs last so it never
// sees normalized values. onCoerce, if non-nil, receives the per-column
// coercion outcomes.
func Plan(cfg config.Transformations, onCoerce func([]builtin.Coercion)) Chain {
	c := Chain{builtin.CoerceDatetimes{Layouts: cfg.DatetimeLayouts, Report: onCoerce}}
	if cfg.ExtractTemporalFeatures {
		c = append(c, builtin.Temporal{})
	}
	if cfg.ApplyNormalization {
		c = append(c, builtin.MinMax{})
	}
	if cfg.ApplyOneHotEncoding {
		c = append(c, builtin.OneHot{MaxCategories: cfg.MaxCategories})
	}
	return c
}

// Package probe inspects a sample dataset and suggests a starting pipeline
// configuration: which columns are always present and which schema type fits
// each one.
package probe

import (
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"etlcore/internal/config"
	"etlcore/internal/dataset"
	"etlcore/internal/transformer/builtin"
)

// Column is the finding for one input column.
type Column struct {
	Name     string   `json:"name" yaml:"name"`
	Observed string   `json:"observed" yaml:"observed"` // inferred dataset type after datetime coercion
	Suggest  string   `json:"suggest,omitempty" yaml:"suggest,omitempty"`
	Nulls    int      `json:"nulls" yaml:"nulls"`
	Distinct int      `json:"distinct,omitempty" yaml:"distinct,omitempty"`
	Layout   string   `json:"layout,omitempty" yaml:"layout,omitempty"`
	Sample   []string `json:"sample,omitempty" yaml:"sample,omitempty"`
}

// Result is a probe report.
type Result struct {
	Rows    int      `json:"rows" yaml:"rows"`
	Columns []Column `json:"columns" yaml:"columns"`
}

// Options tune the heuristics. Zero values use the pipeline defaults.
type Options struct {
	// MaxCategories is the highest distinct count still suggested as
	// categorical.
	MaxCategories int
	// Layouts are the datetime layouts tried on text columns.
	Layouts []string
	// SampleSize caps the distinct example values kept per column.
	SampleSize int
}

func (o Options) withDefaults() Options {
	if o.MaxCategories <= 0 {
		o.MaxCategories = config.DefaultMaxCategories
	}
	if o.SampleSize <= 0 {
		o.SampleSize = 3
	}
	return o
}

// Inspect reports on every column of ds. ds is not modified.
func Inspect(ds *dataset.Dataset, opt Options) Result {
	opt = opt.withDefaults()
	coerced, tags := builtin.CoerceDatetimes{Layouts: opt.Layouts}.Coerce(ds)
	layouts := make(map[string]string, len(tags))
	for _, t := range tags {
		if t.OK {
			layouts[t.Column] = t.Layout
		}
	}

	res := Result{Rows: ds.Rows()}
	for _, c := range coerced.Columns() {
		col := Column{
			Name:     c.Name,
			Observed: c.Type.String(),
			Nulls:    c.NullCount(),
			Layout:   layouts[c.Name],
		}
		switch c.Type {
		case dataset.Numeric:
			col.Suggest = "numeric"
		case dataset.Datetime:
			col.Suggest = "datetime"
		case dataset.Text, dataset.Categorical:
			cats := builtin.Categories(c)
			col.Distinct = len(cats)
			if col.Distinct > 0 && col.Distinct <= opt.MaxCategories {
				col.Suggest = "categorical"
			}
			if len(cats) > opt.SampleSize {
				cats = cats[:opt.SampleSize]
			}
			col.Sample = cats
		}
		res.Columns = append(res.Columns, col)
	}
	return res
}

// Suggest folds a report into base: columns without nulls become required
// and every suggested type is declared. Datetime layouts found are added to
// the coercion layouts. base is not modified.
func Suggest(base config.Pipeline, r Result) config.Pipeline {
	out := base.Clone()
	out.Schema.RequiredColumns = []string{}
	out.Schema.ColumnTypes = map[string]string{}

	seen := map[string]struct{}{}
	for _, l := range out.Transformations.DatetimeLayouts {
		seen[l] = struct{}{}
	}
	var extra []string
	for _, c := range r.Columns {
		if c.Nulls == 0 && r.Rows > 0 {
			out.Schema.RequiredColumns = append(out.Schema.RequiredColumns, c.Name)
		}
		if c.Suggest != "" {
			out.Schema.ColumnTypes[c.Name] = c.Suggest
		}
		if c.Layout != "" {
			if _, ok := seen[c.Layout]; !ok {
				seen[c.Layout] = struct{}{}
				extra = append(extra, c.Layout)
			}
		}
	}
	// only pin layouts when the caller already customized them; otherwise
	// the built-in list found these anyway
	if len(base.Transformations.DatetimeLayouts) > 0 {
		sort.Strings(extra)
		out.Transformations.DatetimeLayouts = append(out.Transformations.DatetimeLayouts, extra...)
	}
	return out
}

// WriteYAML encodes the suggested configuration.
func WriteYAML(w io.Writer, p config.Pipeline) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

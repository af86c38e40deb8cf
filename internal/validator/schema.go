// Package validator holds the read-mostly checks run by the validate stage:
// schema conformance, quality scoring and completeness analysis.
//
// None of them fail with an error. Findings are returned as reports and the
// pipeline decides what gates a run (only an invalid schema does).
package validator

import (
	"fmt"
	"strings"

	"etlcore/internal/config"
	"etlcore/internal/dataset"
)

// SchemaSpec declares required columns and expected column types. It is
// built once per pipeline and treated as immutable.
type SchemaSpec struct {
	RequiredColumns []string
	ColumnTypes     map[string]dataset.ColumnType
}

// SchemaSpecFrom converts the configured schema. Type names that do not parse
// are returned separately so callers can log them; they are not checked.
func SchemaSpecFrom(c config.Schema) (SchemaSpec, []string) {
	s := SchemaSpec{
		RequiredColumns: append([]string(nil), c.RequiredColumns...),
		ColumnTypes:     make(map[string]dataset.ColumnType, len(c.ColumnTypes)),
	}
	var unknown []string
	for name, typ := range c.ColumnTypes {
		ct, err := dataset.ParseColumnType(typ)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		s.ColumnTypes[name] = ct
	}
	return s, unknown
}

// SchemaReport is the outcome of a schema check.
type SchemaReport struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Schema checks a dataset against a SchemaSpec.
type Schema struct{}

// Validate reports missing required columns and type mismatches. All
// violations are collected.
//
// Columns declared categorical that are not yet Categorical are converted in
// place on ds. This is the one mutation a validator performs; callers that
// need the input untouched pass a clone.
func (Schema) Validate(ds *dataset.Dataset, spec SchemaSpec) SchemaReport {
	r := SchemaReport{IsValid: true, Errors: []string{}}

	var missing []string
	for _, name := range spec.RequiredColumns {
		if !ds.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		r.IsValid = false
		r.Errors = append(r.Errors, fmt.Sprintf("Missing required columns: [%s]", quoteJoin(missing)))
	}

	// dataset order keeps the error list deterministic
	for _, c := range ds.Columns() {
		want, ok := spec.ColumnTypes[c.Name]
		if !ok {
			continue
		}
		switch want {
		case dataset.Numeric:
			// booleans count as numeric, as they do for most dataframe libraries
			if c.Type != dataset.Numeric && c.Type != dataset.Boolean {
				r.IsValid = false
				r.Errors = append(r.Errors, fmt.Sprintf("Column '%s' should be numeric", c.Name))
			}
		case dataset.Datetime:
			if c.Type != dataset.Datetime {
				r.IsValid = false
				r.Errors = append(r.Errors, fmt.Sprintf("Column '%s' should be datetime", c.Name))
			}
		case dataset.Categorical:
			if c.Type != dataset.Categorical {
				// ReplaceColumn cannot fail: same name, same length.
				_ = ds.ReplaceColumn(c.AsCategorical())
			}
		}
	}
	return r
}

func quoteJoin(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = "'" + n + "'"
	}
	return strings.Join(q, ", ")
}

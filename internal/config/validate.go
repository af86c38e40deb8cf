package config

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding worth surfacing that does not block
	// execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "output.format",
// "schema.column_types.price"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static linting of a Pipeline. It does not mutate
// the pipeline; callers decide whether warnings are fatal.
//
//	p, err := config.Load(path)
//	for _, iss := range config.ValidatePipeline(p) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics and ledger rows will be unlabeled",
		})
	}
	issues = append(issues, validateInput(p.Input)...)
	issues = append(issues, validateSchema(p.Schema)...)
	issues = append(issues, validateQuality(p.Quality)...)
	issues = append(issues, validateTransformations(p.Transformations)...)
	issues = append(issues, validateOutput(p.Output)...)
	issues = append(issues, validateLedger(p.Ledger)...)

	return issues
}

var knownColumnTypes = map[string]struct{}{
	"numeric":     {},
	"datetime":    {},
	"categorical": {},
}

func validateSchema(s Schema) []Issue {
	var issues []Issue

	seen := make(map[string]bool, len(s.RequiredColumns))
	for i, c := range s.RequiredColumns {
		path := fmt.Sprintf("schema.required_columns[%d]", i)
		if strings.TrimSpace(c) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: "required column name must not be empty"})
			continue
		}
		if seen[c] {
			issues = append(issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf("column %q is listed more than once", c)})
		}
		seen[c] = true
	}

	for name, typ := range s.ColumnTypes {
		if _, ok := knownColumnTypes[strings.ToLower(typ)]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "schema.column_types." + name,
				Message:  fmt.Sprintf("unknown column type %q; it will not be checked", typ),
			})
		}
	}
	return issues
}

func validateQuality(q Quality) []Issue {
	od := q.OutlierDetection
	if od == nil {
		return nil
	}
	var issues []Issue
	if od.Method != "zscore" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "quality.outlier_detection.method",
			Message:  fmt.Sprintf("unknown outlier method %q; outlier detection will be skipped", od.Method),
		})
	}
	if od.Threshold <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "quality.outlier_detection.threshold",
			Message:  fmt.Sprintf("threshold=%g; must be positive", od.Threshold),
		})
	}
	return issues
}

func validateTransformations(t Transformations) []Issue {
	var issues []Issue
	if t.ApplyOneHotEncoding && t.MaxCategories <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "transformations.max_categories",
			Message:  fmt.Sprintf("max_categories=%d; must be positive when one-hot encoding is enabled", t.MaxCategories),
		})
	}
	for i, l := range t.DatetimeLayouts {
		if strings.TrimSpace(l) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("transformations.datetime_layouts[%d]", i),
				Message:  "datetime layout must not be empty",
			})
		}
	}
	return issues
}

func validateInput(in Input) []Issue {
	var issues []Issue
	if utf8.RuneCountInString(in.Delimiter) > 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.delimiter",
			Message:  fmt.Sprintf("delimiter %q must be a single character", in.Delimiter),
		})
	}
	if in.HTTPRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.http_retries",
			Message:  "must be >= 0",
		})
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue
	switch strings.ToLower(o.Format) {
	case "csv", "json", "parquet":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.format",
			Message:  fmt.Sprintf("unsupported output format %q", o.Format),
		})
	}
	if strings.TrimSpace(o.Destination) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.destination",
			Message:  "no default destination; every persist call must name one",
		})
	}
	return issues
}

func validateLedger(l Ledger) []Issue {
	if strings.TrimSpace(l.Kind) == "" {
		return nil
	}
	var issues []Issue
	switch l.Kind {
	case "sqlite", "postgres":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "ledger.kind",
			Message:  fmt.Sprintf("unknown ledger kind %q; ensure a matching backend is registered", l.Kind),
		})
	}
	if strings.TrimSpace(l.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "ledger.dsn",
			Message:  "ledger.dsn must not be empty when ledger.kind is set",
		})
	}
	if strings.TrimSpace(l.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "ledger.table",
			Message:  "ledger.table must not be empty",
		})
	}
	return issues
}

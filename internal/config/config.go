// Package config defines the pipeline configuration model, its defaults and
// the file loader that merges user overrides onto those defaults.
//
// Files may be JSON or YAML (selected by extension). A typical override:
//
//	{
//	  "schema":  { "required_columns": ["ts", "value"], "column_types": { "value": "numeric" } },
//	  "quality": { "outlier_detection": { "method": "zscore", "threshold": 2.5 } },
//	  "transformations": { "apply_one_hot_encoding": false },
//	  "output":  { "format": "parquet", "destination": "out/" }
//	}
//
// Merge rule: a top-level key whose default and override values are both
// objects is merged field by field (the override wins per field); every other
// top-level key is replaced wholesale. Nested objects below the first level
// are therefore replaced, not merged.
package config

import (
	"encoding/json"

	"etlcore/internal/logging"
)

// Pipeline is the merged configuration governing every pipeline stage.
type Pipeline struct {
	// Job labels metrics and ledger rows.
	Job string `json:"job" yaml:"job"`

	Input           Input           `json:"input" yaml:"input"`
	Schema          Schema          `json:"schema" yaml:"schema"`
	Quality         Quality         `json:"quality" yaml:"quality"`
	Transformations Transformations `json:"transformations" yaml:"transformations"`
	Output          Output          `json:"output" yaml:"output"`

	// Ledger optionally records a summary row per run in a database.
	Ledger Ledger `json:"ledger" yaml:"ledger"`

	// S3 configures uploads for s3:// destinations.
	S3 S3 `json:"s3" yaml:"s3"`

	Logging logging.Config `json:"logging" yaml:"logging"`
}

// Input tunes the readers. Delimiter applies to CSV, Sheet to spreadsheets
// (empty means the first sheet); the HTTP knobs apply to http(s) inputs.
type Input struct {
	Delimiter      string `json:"delimiter" yaml:"delimiter"`
	Sheet          string `json:"sheet" yaml:"sheet"`
	HTTPRetries    int    `json:"http_retries" yaml:"http_retries"`
	HTTPTimeoutSec int    `json:"http_timeout_sec" yaml:"http_timeout_sec"`
}

// Schema declares required columns and expected column types
// ("numeric", "datetime" or "categorical").
type Schema struct {
	RequiredColumns []string          `json:"required_columns" yaml:"required_columns"`
	ColumnTypes     map[string]string `json:"column_types" yaml:"column_types"`
}

// Quality configures the quality checker. A nil OutlierDetection disables
// outlier detection.
type Quality struct {
	OutlierDetection *OutlierDetection `json:"outlier_detection" yaml:"outlier_detection"`
}

type OutlierDetection struct {
	Method    string  `json:"method" yaml:"method"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// Transformations are the feature-transform flags and their parameters.
type Transformations struct {
	ApplyNormalization      bool `json:"apply_normalization" yaml:"apply_normalization"`
	ApplyOneHotEncoding     bool `json:"apply_one_hot_encoding" yaml:"apply_one_hot_encoding"`
	ExtractTemporalFeatures bool `json:"extract_temporal_features" yaml:"extract_temporal_features"`

	// MaxCategories bounds one-hot output width per column.
	MaxCategories int `json:"max_categories" yaml:"max_categories"`

	// DatetimeLayouts overrides the layouts tried when coercing text columns
	// to datetimes. Empty means the built-in list.
	DatetimeLayouts []string `json:"datetime_layouts" yaml:"datetime_layouts"`
}

// Output selects the artifact format ("csv", "parquet", "json") and the
// default destination (a file path, a directory, or s3://bucket/key).
type Output struct {
	Format      string `json:"format" yaml:"format"`
	Destination string `json:"destination" yaml:"destination"`
}

// Ledger selects a run-ledger backend. Empty Kind disables the ledger.
type Ledger struct {
	Kind  string `json:"kind" yaml:"kind"` // sqlite|postgres
	DSN   string `json:"dsn" yaml:"dsn"`
	Table string `json:"table" yaml:"table"`
}

// S3 holds settings for uploading artifacts. Empty credentials fall back to
// the default AWS credential chain.
type S3 struct {
	Region       string `json:"region" yaml:"region"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	AccessKey    string `json:"access_key" yaml:"access_key"`
	SecretKey    string `json:"secret_key" yaml:"secret_key"`
	UsePathStyle bool   `json:"use_path_style" yaml:"use_path_style"`
}

const (
	DefaultThreshold     = 3.0
	DefaultMaxCategories = 10
	DefaultDestination   = "processed_data/"
)

// Default returns the built-in configuration.
func Default() Pipeline {
	return Pipeline{
		Job: "etl",
		Input: Input{
			Delimiter:      ",",
			HTTPRetries:    2,
			HTTPTimeoutSec: 60,
		},
		Schema: Schema{
			RequiredColumns: []string{},
			ColumnTypes:     map[string]string{},
		},
		Quality: Quality{
			OutlierDetection: &OutlierDetection{Method: "zscore", Threshold: DefaultThreshold},
		},
		Transformations: Transformations{
			ApplyNormalization:      true,
			ApplyOneHotEncoding:     true,
			ExtractTemporalFeatures: true,
			MaxCategories:           DefaultMaxCategories,
		},
		Output: Output{
			Format:      "csv",
			Destination: DefaultDestination,
		},
		Ledger: Ledger{Table: "etl_runs"},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// Clone returns a deep copy so pipelines never share mutable config.
func (p Pipeline) Clone() Pipeline {
	out := p
	out.Schema.RequiredColumns = append([]string(nil), p.Schema.RequiredColumns...)
	out.Schema.ColumnTypes = make(map[string]string, len(p.Schema.ColumnTypes))
	for k, v := range p.Schema.ColumnTypes {
		out.Schema.ColumnTypes[k] = v
	}
	if p.Quality.OutlierDetection != nil {
		od := *p.Quality.OutlierDetection
		out.Quality.OutlierDetection = &od
	}
	out.Transformations.DatetimeLayouts = append([]string(nil), p.Transformations.DatetimeLayouts...)
	return out
}

// Options is a decoded JSON or YAML object. Config overrides are merged in
// this form before being decoded into a Pipeline.
type Options map[string]any

// Map returns the nested object stored at key, or nil when the key is missing
// or not an object.
func (o Options) Map(key string) Options {
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return Options(m)
		}
	}
	return nil
}

// UnmarshalJSON makes a missing or null object decode to an empty Options.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

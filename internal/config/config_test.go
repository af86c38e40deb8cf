package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestDefault(t *testing.T) {
	t.Parallel()

	d := Default()
	if d.Quality.OutlierDetection == nil || d.Quality.OutlierDetection.Method != "zscore" || d.Quality.OutlierDetection.Threshold != 3.0 {
		t.Fatalf("outlier_detection=%+v, want zscore/3.0", d.Quality.OutlierDetection)
	}
	tr := d.Transformations
	if !tr.ApplyNormalization || !tr.ApplyOneHotEncoding || !tr.ExtractTemporalFeatures {
		t.Fatalf("transformation flags=%+v, want all true", tr)
	}
	if tr.MaxCategories != 10 {
		t.Fatalf("max_categories=%d, want 10", tr.MaxCategories)
	}
	if d.Output.Format != "csv" || d.Output.Destination != "processed_data/" {
		t.Fatalf("output=%+v", d.Output)
	}
	if len(d.Schema.RequiredColumns) != 0 || len(d.Schema.ColumnTypes) != 0 {
		t.Fatalf("schema=%+v, want empty", d.Schema)
	}
	if d.Input.Delimiter != "," || d.Input.Sheet != "" {
		t.Fatalf("input=%+v", d.Input)
	}
}

func TestLoad_EmptyPathIsDefaults(t *testing.T) {
	t.Parallel()

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(p, Default()) {
		t.Fatalf("got %+v, want defaults", p)
	}
}

func TestLoad_MergesTopLevelObjects(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "p.json", `{
	  "schema": { "required_columns": ["ts", "value"] },
	  "transformations": { "apply_one_hot_encoding": false },
	  "output": { "format": "parquet" }
	}`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := p.Schema.RequiredColumns; !reflect.DeepEqual(got, []string{"ts", "value"}) {
		t.Fatalf("required_columns=%v", got)
	}
	if len(p.Schema.ColumnTypes) != 0 {
		t.Fatalf("column_types=%v, want default empty", p.Schema.ColumnTypes)
	}
	if p.Transformations.ApplyOneHotEncoding {
		t.Fatalf("apply_one_hot_encoding should be overridden to false")
	}
	if !p.Transformations.ApplyNormalization || p.Transformations.MaxCategories != 10 {
		t.Fatalf("sibling transformation fields lost: %+v", p.Transformations)
	}
	if p.Output.Format != "parquet" || p.Output.Destination != DefaultDestination {
		t.Fatalf("output=%+v", p.Output)
	}
}

func TestLoad_NestedObjectIsReplaced(t *testing.T) {
	t.Parallel()

	// outlier_detection sits below the top level, so it is replaced as a whole.
	path := writeFile(t, "p.json", `{"quality": {"outlier_detection": {"threshold": 2}}}`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	od := p.Quality.OutlierDetection
	if od == nil || od.Threshold != 2 || od.Method != "" {
		t.Fatalf("outlier_detection=%+v, want {Method:\"\" Threshold:2}", od)
	}
}

func TestLoad_NullDisablesOutliers(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "p.json", `{"quality": {"outlier_detection": null}}`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Quality.OutlierDetection != nil {
		t.Fatalf("outlier_detection=%+v, want nil", p.Quality.OutlierDetection)
	}
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "p.yaml", `
job: sensors
schema:
  column_types:
    value: numeric
    ts: datetime
transformations:
  max_categories: 4
ledger:
  kind: sqlite
  dsn: file:runs.db
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Job != "sensors" {
		t.Fatalf("job=%q", p.Job)
	}
	want := map[string]string{"value": "numeric", "ts": "datetime"}
	if !reflect.DeepEqual(p.Schema.ColumnTypes, want) {
		t.Fatalf("column_types=%v, want %v", p.Schema.ColumnTypes, want)
	}
	if p.Transformations.MaxCategories != 4 || !p.Transformations.ExtractTemporalFeatures {
		t.Fatalf("transformations=%+v", p.Transformations)
	}
	if p.Ledger.Kind != "sqlite" || p.Ledger.Table != "etl_runs" {
		t.Fatalf("ledger=%+v", p.Ledger)
	}
}

func TestLoad_ReplacesNonObjectKeys(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "p.json", `{"job": "nightly"}`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Job != "nightly" {
		t.Fatalf("job=%q", p.Job)
	}
}

func TestLoad_FallsBackWithWarning(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(t.TempDir(), "nope.json")},
		{"malformed json", writeFile(t, "bad.json", `{"schema": [`)},
		{"malformed yaml", writeFile(t, "bad.yml", "schema: [a\n")},
		{"wrong type", writeFile(t, "typ.json", `{"transformations": {"max_categories": "many"}}`)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := Load(tc.path)
			var w *LoadWarning
			if !errors.As(err, &w) {
				t.Fatalf("err=%v, want *LoadWarning", err)
			}
			if w.Path != tc.path {
				t.Fatalf("warning path=%q, want %q", w.Path, tc.path)
			}
			if !reflect.DeepEqual(p, Default()) {
				t.Fatalf("got %+v, want defaults", p)
			}
		})
	}
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()

	a := Default()
	a.Schema.ColumnTypes["x"] = "numeric"
	b := a.Clone()
	b.Schema.ColumnTypes["x"] = "datetime"
	b.Quality.OutlierDetection.Threshold = 9

	if a.Schema.ColumnTypes["x"] != "numeric" {
		t.Fatalf("clone shares column_types")
	}
	if a.Quality.OutlierDetection.Threshold != 3 {
		t.Fatalf("clone shares outlier_detection")
	}
}

func TestOptions_Map(t *testing.T) {
	t.Parallel()

	o := Options{"m": map[string]any{"k": "v"}, "s": "x"}
	if got := o.Map("m"); !reflect.DeepEqual(got, Options{"k": "v"}) {
		t.Fatalf("Map(m)=%v", got)
	}
	if o.Map("s") != nil || o.Map("missing") != nil {
		t.Fatalf("Map returned an object for a non-object key")
	}
}

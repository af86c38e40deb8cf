package validator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlcore/internal/config"
	"etlcore/internal/dataset"
)

func mustDataset(t *testing.T, cols ...*dataset.Column) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(cols...)
	require.NoError(t, err)
	return ds
}

func TestSchema_MissingColumns(t *testing.T) {
	t.Parallel()

	ds := mustDataset(t, dataset.NewNumeric("value", []float64{1}, nil))
	spec := SchemaSpec{RequiredColumns: []string{"ts", "value", "label"}}

	r := Schema{}.Validate(ds, spec)
	assert.False(t, r.IsValid)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "Missing required columns: ['ts', 'label']", r.Errors[0])
}

func TestSchema_TypeChecksAccumulate(t *testing.T) {
	t.Parallel()

	ds := mustDataset(t,
		dataset.NewText("price", []string{"x"}, nil),
		dataset.NewText("when", []string{"y"}, nil),
		dataset.NewText("kind", []string{"z"}, nil),
		dataset.NewBoolean("flag", []bool{true}, nil),
	)
	spec := SchemaSpec{
		RequiredColumns: []string{"gone"},
		ColumnTypes: map[string]dataset.ColumnType{
			"price":  dataset.Numeric,
			"when":   dataset.Datetime,
			"kind":   dataset.Categorical,
			"flag":   dataset.Numeric,
			"absent": dataset.Numeric,
		},
	}

	r := Schema{}.Validate(ds, spec)
	assert.False(t, r.IsValid)
	assert.Equal(t, []string{
		"Missing required columns: ['gone']",
		"Column 'price' should be numeric",
		"Column 'when' should be datetime",
	}, r.Errors)

	kind, _ := ds.Column("kind")
	assert.Equal(t, dataset.Categorical, kind.Type, "categorical coercion happens in place")
	assert.Equal(t, []string{"price", "when", "kind", "flag"}, ds.Names())
}

func TestSchema_Valid(t *testing.T) {
	t.Parallel()

	ds := mustDataset(t,
		dataset.NewNumeric("value", []float64{1, 2}, nil),
		dataset.NewNumeric("code", []float64{7, 8}, nil),
	)
	spec, unknown := SchemaSpecFrom(config.Schema{
		RequiredColumns: []string{"value"},
		ColumnTypes:     map[string]string{"value": "numeric", "code": "categorical", "x": "money"},
	})
	assert.Equal(t, []string{"x"}, unknown)

	r := Schema{}.Validate(ds, spec)
	assert.True(t, r.IsValid)
	assert.Empty(t, r.Errors)

	code, _ := ds.Column("code")
	assert.Equal(t, dataset.Categorical, code.Type)
	assert.Equal(t, []string{"7", "8"}, code.Strs)
}

func TestQuality_PerfectScore(t *testing.T) {
	t.Parallel()

	ds := mustDataset(t,
		dataset.NewNumeric("a", []float64{1, 2, 3}, nil),
		dataset.NewText("b", []string{"x", "y", "z"}, nil),
	)
	r := Quality{}.Check(ds)
	assert.Equal(t, 1.0, r.QualityScore)
	assert.Empty(t, r.Issues)
}

func TestQuality_Penalties(t *testing.T) {
	t.Parallel()

	// 4 rows x 2 cols; 2 nulls; row 3 duplicates row 2 (nulls compare equal).
	ds := mustDataset(t,
		dataset.NewNumeric("a", []float64{1, 2, 0, 0}, []bool{false, false, true, true}),
		dataset.NewText("b", []string{"x", "y", "z", "z"}, nil),
	)
	r := Quality{}.Check(ds)

	require.Len(t, r.Issues, 2)
	assert.Equal(t, Issue{Kind: MissingValues, PerColumnCounts: map[string]int{"a": 2}}, r.Issues[0])
	assert.Equal(t, Issue{Kind: Duplicates, Count: 1}, r.Issues[1])
	assert.InDelta(t, 1-2.0/8-1.0/4, r.QualityScore, 1e-12)
}

func TestQuality_ScoreClamped(t *testing.T) {
	t.Parallel()

	// every cell null and every row after the first a duplicate
	ds := mustDataset(t,
		dataset.NewNumeric("a", make([]float64, 4), []bool{true, true, true, true}),
	)
	r := Quality{}.Check(ds)
	assert.Equal(t, 0.0, r.QualityScore)
}

func TestQuality_Outliers(t *testing.T) {
	t.Parallel()

	vals := make([]float64, 20)
	for i := range vals {
		vals[i] = float64(i % 2)
	}
	vals[19] = 100
	ds := mustDataset(t,
		dataset.NewNumeric("spiky", vals, nil),
		dataset.NewNumeric("flat", []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}, nil),
		dataset.NewNumeric("id", seq(20), nil),
	)
	q := Quality{OutlierDetection: &config.OutlierDetection{Method: "zscore", Threshold: 3}}
	r := q.Check(ds)

	var outliers []Issue
	for _, iss := range r.Issues {
		if iss.Kind == Outliers {
			outliers = append(outliers, iss)
		}
	}
	assert.Equal(t, []Issue{{Kind: Outliers, Column: "spiky", Count: 1}}, outliers)

	// outliers are informational; the flat column repeats but rows differ via id
	assert.Equal(t, 1.0, r.QualityScore)

	unknown := Quality{OutlierDetection: &config.OutlierDetection{Method: "iqr", Threshold: 3}}
	assert.Empty(t, unknown.Check(ds).Issues)
}

func TestDuplicateRows(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ds   *dataset.Dataset
		want int
	}{
		{"empty", mustDataset(t), 0},
		{"single", mustDataset(t, dataset.NewNumeric("a", []float64{1}, nil)), 0},
		{"all same", mustDataset(t, dataset.NewText("a", []string{"x", "x", "x"}, nil)), 2},
		{"empty string vs null", mustDataset(t, dataset.NewText("a", []string{"", ""}, []bool{false, true})), 0},
		{"multi column", mustDataset(t,
			dataset.NewNumeric("a", []float64{1, 1, 2, 1}, nil),
			dataset.NewText("b", []string{"x", "y", "x", "x"}, nil),
		), 1},
		{"separator bytes in text", mustDataset(t,
			dataset.NewText("a", []string{"a\x1f\x01b", "a"}, nil),
			dataset.NewText("b", []string{"c", "b\x1f\x01c"}, nil),
		), 0},
		{"signed zero", mustDataset(t, dataset.NewNumeric("a", []float64{0, math.Copysign(0, -1)}, nil)), 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, DuplicateRows(tc.ds))
		})
	}
}

func TestCompleteness(t *testing.T) {
	t.Parallel()

	ds := mustDataset(t,
		dataset.NewNumeric("a", []float64{1, 0, 3, 4}, []bool{false, true, false, false}),
		dataset.NewText("b", []string{"x", "y", "z", "w"}, nil),
	)
	before := ds.Clone()

	r := Completeness{}.Analyze(ds)
	assert.Equal(t, 8, r.TotalCells)
	assert.Equal(t, 1, r.MissingCells)
	assert.InDelta(t, 7.0/8, r.OverallCompleteness, 1e-12)
	assert.Equal(t, map[string]float64{"a": 0.75, "b": 1}, r.PerColumn)
	assert.Equal(t, before, ds)
}

func TestCompleteness_Empty(t *testing.T) {
	t.Parallel()

	r := Completeness{}.Analyze(mustDataset(t, dataset.NewNumeric("a", nil, nil)))
	assert.Equal(t, 0, r.TotalCells)
	assert.Equal(t, 0.0, r.OverallCompleteness)
	assert.Equal(t, 0.0, r.PerColumn["a"])
	assert.False(t, math.IsNaN(r.PerColumn["a"]))
}

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

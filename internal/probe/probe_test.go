package probe

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"etlcore/internal/config"
	"etlcore/internal/dataset"
)

func sample(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromStrings(
		[]string{"ts", "value", "label", "note", "flag"},
		[][]string{
			{"2023-01-02", "10", "a", "x1", "true"},
			{"2023-01-03", "", "b", "x2", "false"},
			{"2023-01-03", "20", "b", "x3", "true"},
		},
	)
	require.NoError(t, err)
	return ds
}

func TestInspect(t *testing.T) {
	t.Parallel()

	ds := sample(t)
	r := Inspect(ds, Options{MaxCategories: 2})
	require.Len(t, r.Columns, 5)
	assert.Equal(t, 3, r.Rows)

	byName := map[string]Column{}
	for _, c := range r.Columns {
		byName[c.Name] = c
	}
	assert.Equal(t, "datetime", byName["ts"].Suggest)
	assert.Equal(t, "2006-01-02", byName["ts"].Layout)
	assert.Equal(t, "numeric", byName["value"].Suggest)
	assert.Equal(t, 1, byName["value"].Nulls)
	assert.Equal(t, "categorical", byName["label"].Suggest)
	assert.Equal(t, []string{"a", "b"}, byName["label"].Sample)

	// three distinct values exceed the cap of two
	assert.Empty(t, byName["note"].Suggest)
	assert.Equal(t, 3, byName["note"].Distinct)
	assert.Equal(t, "boolean", byName["flag"].Observed)
	assert.Empty(t, byName["flag"].Suggest)

	// input stays as parsed
	c, _ := ds.Column("ts")
	assert.Equal(t, dataset.Text, c.Type)
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	base := config.Default()
	base.Schema.RequiredColumns = []string{"old"}
	out := Suggest(base, Inspect(sample(t), Options{MaxCategories: 2}))

	assert.Equal(t, []string{"ts", "label", "note", "flag"}, out.Schema.RequiredColumns)
	assert.Equal(t, map[string]string{"ts": "datetime", "value": "numeric", "label": "categorical"}, out.Schema.ColumnTypes)
	assert.Empty(t, out.Transformations.DatetimeLayouts)
	assert.Equal(t, []string{"old"}, base.Schema.RequiredColumns)
	for _, iss := range config.ValidatePipeline(out) {
		assert.NotEqual(t, config.SeverityError, iss.Severity, iss.Error())
	}
}

func TestSuggest_ExtendsCustomLayouts(t *testing.T) {
	t.Parallel()

	base := config.Default()
	base.Transformations.DatetimeLayouts = []string{"2006-01-02"}
	ds, err := dataset.FromStrings([]string{"a", "b"}, [][]string{{"2023-01-02", "02.01.2023"}})
	require.NoError(t, err)

	out := Suggest(base, Inspect(ds, Options{Layouts: []string{"2006-01-02", "02.01.2006"}}))
	assert.Equal(t, []string{"2006-01-02", "02.01.2006"}, out.Transformations.DatetimeLayouts)
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	t.Parallel()

	cfg := Suggest(config.Default(), Inspect(sample(t), Options{}))
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, cfg))

	var back config.Pipeline
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, cfg.Schema, back.Schema)
	assert.Equal(t, cfg.Output, back.Output)
}

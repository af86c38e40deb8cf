package format

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPath(t *testing.T) {
	t.Parallel()

	cases := map[string]Format{
		"data.csv":                              CSV,
		"DATA.CSV":                              CSV,
		"/tmp/a.b/sheet.xlsx":                   XLSX,
		"old.XLS":                               XLS,
		"rows.json":                             JSON,
		"part-0.parquet":                        Parquet,
		`C:\data\in.csv`:                        CSV,
		"https://example.com/x/data.json?sig=1": JSON,
	}
	for in, want := range cases {
		got, err := FromPath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestFromPath_Unsupported(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"notes.txt", "noext", "archive.csv.gz"} {
		_, err := FromPath(in)
		var ufe *UnsupportedFormatError
		require.True(t, errors.As(err, &ufe), in)
		assert.Equal(t, "read", ufe.Op)
		assert.Equal(t, "unsupported file format: "+in, err.Error())
	}
}

func TestStem(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"data/a.csv":                          "a",
		`C:\in\b.xlsx`:                        "b",
		"https://x.test/files/data.csv?v=1.2": "data",
		"https://x.test/c.json#part.2":        "c",
		"noext":                               "noext",
	}
	for in, want := range cases {
		assert.Equal(t, want, Stem(in), in)
	}
}

func TestParseOutput(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"csv", "JSON", " parquet "} {
		_, err := ParseOutput(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseOutput("xlsx")
	var ufe *UnsupportedFormatError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "unsupported output format: xlsx", err.Error())
}

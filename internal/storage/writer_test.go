package storage

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlcore/internal/dataset"
	"etlcore/internal/duck"
	"etlcore/internal/format"
)

func sample(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		dataset.NewNumeric("value", []float64{0, 0.5, math.NaN()}, []bool{false, true, false}),
		dataset.NewText("label", []string{"a,b", "q\"t", "c"}, nil),
		dataset.NewBoolean("label_a", []bool{true, false, false}, nil),
		dataset.NewDatetime("ts", []time.Time{
			time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC),
			{},
		}, []bool{false, false, true}),
	)
	require.NoError(t, err)
	return ds
}

func TestEncodeCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, sample(t)))
	want := "value,label,label_a,ts\n" +
		"0,\"a,b\",True,2023-01-02\n" +
		",\"q\"\"t\",False,2023-01-02T03:04:05Z\n" +
		"NaN,c,False,\n"
	assert.Equal(t, want, buf.String())
}

func TestEncodeJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, sample(t)))
	want := `[{"value":0,"label":"a,b","label_a":true,"ts":"2023-01-02"},` +
		`{"value":null,"label":"q\"t","label_a":false,"ts":"2023-01-02T03:04:05Z"},` +
		`{"value":null,"label":"c","label_a":false,"ts":null}]` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestEncodeJSON_Empty(t *testing.T) {
	t.Parallel()

	ds, err := dataset.New(dataset.NewNumeric("x", []float64{}, nil))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, ds))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriterFor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	ds := sample(t)

	eng, err := duck.Open()
	require.NoError(t, err)
	defer eng.Close()

	for _, f := range []format.Format{format.CSV, format.JSON, format.Parquet} {
		w, err := WriterFor(f, eng)
		require.NoError(t, err, f)
		p := filepath.Join(dir, "out."+string(f))
		require.NoError(t, w.WriteFile(ctx, ds, p), f)
		fi, err := os.Stat(p)
		require.NoError(t, err, f)
		assert.Positive(t, fi.Size(), f)
	}

	back, err := eng.ReadParquet(ctx, filepath.Join(dir, "out.parquet"))
	require.NoError(t, err)
	assert.Equal(t, ds.Names(), back.Names())

	_, err = WriterFor(format.XLSX, nil)
	var ufe *format.UnsupportedFormatError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, "write", ufe.Op)
}

func TestWriteFile_BadDirectory(t *testing.T) {
	t.Parallel()

	w, err := WriterFor(format.CSV, nil)
	require.NoError(t, err)
	err = w.WriteFile(context.Background(), sample(t), filepath.Join(t.TempDir(), "missing", "out.csv"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

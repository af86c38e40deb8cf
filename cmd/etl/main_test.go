package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"etlcore/internal/config"
	"etlcore/internal/etl"
)

const sampleCSV = "ts,value,label\n2023-01-02,10,a\n2023-01-03,20,b\n2023-01-03,20,b\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_SingleInput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "sample.csv", sampleCSV)
	outDir := filepath.Join(dir, "out") + "/"

	code, stdout, stderr := runCLI(t, "-input", in, "-output", outDir, "-metrics-backend", "none")
	require.Equal(t, 0, code, stderr)

	var res etl.RunResult
	require.NoError(t, jsoniter.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, etl.StatusSuccess, res.Status)
	assert.Equal(t, 3, res.RowsProcessed)
	assert.FileExists(t, res.OutputPath)
	assert.Equal(t, filepath.Join(dir, "out"), filepath.Dir(res.OutputPath))
}

func TestRun_MultipleInputsGetOwnDirs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", sampleCSV)
	b := writeFile(t, dir, "b.csv", sampleCSV)
	outDir := filepath.Join(dir, "out") + "/"

	code, stdout, stderr := runCLI(t, "-input", a, "-input", b, "-output", outDir, "-parallel", "2", "-metrics-backend", "none")
	require.Equal(t, 0, code, stderr)

	var res []etl.RunResult
	require.NoError(t, jsoniter.Unmarshal([]byte(stdout), &res))
	require.Len(t, res, 2)
	assert.Equal(t, a, res[0].Source)
	assert.Equal(t, "a", filepath.Base(filepath.Dir(res[0].OutputPath)))
	assert.Equal(t, "b", filepath.Base(filepath.Dir(res[1].OutputPath)))
}

func TestRun_FailedInputExitsOne(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "notes.txt", "hello")

	code, stdout, _ := runCLI(t, "-input", in, "-output", dir+"/", "-metrics-backend", "none")
	assert.Equal(t, 1, code)

	var res etl.RunResult
	require.NoError(t, jsoniter.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, etl.StatusError, res.Status)
	assert.Contains(t, res.Message, "unsupported file format")
}

func TestRun_InputsFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "sample.csv", sampleCSV)
	list := writeFile(t, dir, "inputs.txt", "# inputs\n"+in+"\n")

	code, _, stderr := runCLI(t, "-inputs-file", list, "-output", filepath.Join(dir, "out")+"/", "-metrics-backend", "none")
	assert.Equal(t, 0, code, stderr)
}

func TestRun_NoInput(t *testing.T) {
	code, _, stderr := runCLI(t, "-metrics-backend", "none")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "no input given")
}

func TestRun_ValidateOnly(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", `{"output": {"format": "json"}}`)
	bad := writeFile(t, dir, "bad.json", `{"output": {"format": "xml"}}`)

	code, _, stderr := runCLI(t, "-config", good, "-validate")
	assert.Equal(t, 0, code, stderr)

	code, _, stderr = runCLI(t, "-config", bad, "-validate")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "output.format")
}

func TestRun_SeveralInputsNeedDirectory(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", sampleCSV)
	b := writeFile(t, dir, "b.csv", sampleCSV)

	code, _, stderr := runCLI(t, "-input", a, "-input", b, "-output", filepath.Join(dir, "one.csv"), "-metrics-backend", "none")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "must be a directory")
}

func TestDestinations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		dest   string
		inputs []string
		want   []string
	}{
		{"single", "out/", []string{"data/a.csv"}, []string{"out/"}},
		{"per input", "out/", []string{"data/a.csv", "data/b.csv"}, []string{"out/a/", "out/b/"}},
		{"url query", "out", []string{"https://x.test/files/data.csv?v=1.2", "c.json"}, []string{"out/data/", "out/c/"}},
		{"s3", "s3://bucket/exports/", []string{"c.parquet", "d.csv"}, []string{"s3://bucket/exports/c/", "s3://bucket/exports/d/"}},
		{"same base name", "out/", []string{"x/data.csv", "y/data.csv", "data_2.csv", "data.csv"}, []string{"out/data/", "out/data_2/", "out/data_2_2/", "out/data_3/"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, destinations(tc.dest, tc.inputs))
		})
	}
}

func TestRun_SameBaseNameInputsDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "x"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "y"), 0o755))
	a := writeFile(t, dir, "x/data.csv", sampleCSV)
	b := writeFile(t, dir, "y/data.csv", sampleCSV)

	code, stdout, stderr := runCLI(t, "-input", a, "-input", b, "-output", filepath.Join(dir, "out")+"/", "-parallel", "2", "-metrics-backend", "none")
	require.Equal(t, 0, code, stderr)

	var res []etl.RunResult
	require.NoError(t, jsoniter.Unmarshal([]byte(stdout), &res))
	require.Len(t, res, 2)
	assert.NotEqual(t, res[0].OutputPath, res[1].OutputPath)
	assert.FileExists(t, res[0].OutputPath)
	assert.FileExists(t, res[1].OutputPath)
}

func TestNeedsParquet(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	assert.False(t, needsParquet(cfg, []string{"a.csv"}))
	assert.True(t, needsParquet(cfg, []string{"a.csv", "b.parquet"}))
	cfg.Output.Format = "parquet"
	assert.True(t, needsParquet(cfg, nil))
}

func TestPickInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, pickInt(3, 4))
	assert.Equal(t, 4, pickInt(0, 4))
	assert.Equal(t, 4, newRuntimeConfig(cliOptions{parallel: 4}).parallel)
}

func TestRun_Probe(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "sample.csv", sampleCSV)

	code, stdout, stderr := runCLI(t, "-probe", "-input", in)
	require.Equal(t, 0, code, stderr)

	var cfg config.Pipeline
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, []string{"ts", "value", "label"}, cfg.Schema.RequiredColumns)
	assert.Equal(t, map[string]string{"ts": "datetime", "value": "numeric", "label": "categorical"}, cfg.Schema.ColumnTypes)
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"etlcore/internal/config"
	"etlcore/internal/datasource"
	"etlcore/internal/datasource/httpds"
	"etlcore/internal/duck"
	"etlcore/internal/etl"
	"etlcore/internal/format"
	"etlcore/internal/probe"
	"etlcore/internal/storage"
	"etlcore/internal/storage/s3"
)

// runtimeConfig is the resolved concurrency for a CLI invocation.
type runtimeConfig struct {
	parallel int
}

func newRuntimeConfig(o cliOptions) runtimeConfig {
	return runtimeConfig{parallel: pickInt(o.parallel, pickInt(getenvInt("ETL_PARALLEL", 4), 1))}
}

// runAll runs one pipeline per input, at most rt.parallel at a time, and
// returns the results in input order. Shared resources (HTTP client,
// ledger, Parquet engine, S3 uploader) are opened once here. An error means
// setup failed before any pipeline ran.
func runAll(ctx context.Context, log logrus.FieldLogger, cfg config.Pipeline, inputs []string, output string, rt runtimeConfig) ([]etl.RunResult, error) {
	opts := []etl.Option{
		etl.WithLogger(log),
		etl.WithSourceOpener(datasource.Resolver{Client: httpds.NewClient(httpds.Config{
			Timeout:    time.Duration(cfg.Input.HTTPTimeoutSec) * time.Second,
			MaxRetries: cfg.Input.HTTPRetries,
		})}),
	}

	ledger, err := etl.OpenLedger(ctx, cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if ledger != nil {
		defer ledger.Close()
		opts = append(opts, etl.WithLedger(ledger))
	}

	if needsParquet(cfg, inputs) {
		eng, err := duck.Open()
		if err != nil {
			return nil, err
		}
		defer eng.Close()
		opts = append(opts, etl.WithParquetEngine(eng))
	}

	dest := firstNonEmpty(output, cfg.Output.Destination)
	if storage.IsS3(dest) {
		up, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		opts = append(opts, etl.WithUploader(up))
	}
	if len(inputs) > 1 && !storage.IsS3(dest) && !isDirDestination(dest) {
		return nil, fmt.Errorf("destination %s must be a directory when %d inputs are given", dest, len(inputs))
	}

	dests := destinations(dest, inputs)
	results := make([]etl.RunResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rt.parallel)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			p := etl.New(cfg, opts...)
			results[i] = p.Run(gctx, in, dests[i])
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func needsParquet(cfg config.Pipeline, inputs []string) bool {
	if f, err := format.ParseOutput(cfg.Output.Format); err == nil && f == format.Parquet {
		return true
	}
	for _, in := range inputs {
		if f, err := format.FromPath(in); err == nil && f == format.Parquet {
			return true
		}
	}
	return false
}

func isDirDestination(dest string) bool {
	if strings.HasSuffix(dest, "/") || strings.HasSuffix(dest, string(os.PathSeparator)) {
		return true
	}
	fi, err := os.Stat(dest)
	return err == nil && fi.IsDir()
}

// destinations returns the destination for each input. Several inputs
// sharing a directory destination each get their own subdirectory, named
// after the input's stem with a numeric suffix for repeats, so their
// timestamped artifacts cannot collide.
func destinations(dest string, inputs []string) []string {
	out := make([]string, len(inputs))
	if len(inputs) <= 1 {
		for i := range out {
			out[i] = dest
		}
		return out
	}
	base := strings.TrimRight(dest, `/\`)
	used := make(map[string]struct{}, len(inputs))
	for i, in := range inputs {
		stem := format.Stem(in)
		if stem == "" || stem == "." || stem == "/" {
			stem = httpds.HashString(in)[:12]
		}
		name := stem
		for n := 2; ; n++ {
			if _, ok := used[name]; !ok {
				break
			}
			name = fmt.Sprintf("%s_%d", stem, n)
		}
		used[name] = struct{}{}
		out[i] = base + "/" + name + "/"
	}
	return out
}

// printResults writes a single result as an object and several as an array.
func printResults(w io.Writer, results []etl.RunResult) error {
	api := jsoniter.ConfigCompatibleWithStandardLibrary
	var (
		b   []byte
		err error
	)
	if len(results) == 1 {
		b, err = api.MarshalIndent(results[0], "", "  ")
	} else {
		b, err = api.MarshalIndent(results, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// probeInput loads input with cfg's reader settings and prints cfg with a
// schema suggested from the data.
func probeInput(ctx context.Context, log logrus.FieldLogger, cfg config.Pipeline, input string, w io.Writer) error {
	p := etl.New(cfg, etl.WithLogger(log))
	ds, err := p.Load(ctx, input)
	if err != nil {
		return err
	}
	r := probe.Inspect(ds, probe.Options{
		MaxCategories: cfg.Transformations.MaxCategories,
		Layouts:       cfg.Transformations.DatetimeLayouts,
	})
	for _, c := range r.Columns {
		log.WithFields(logrus.Fields{
			"column":   c.Name,
			"observed": c.Observed,
			"suggest":  c.Suggest,
			"nulls":    c.Nulls,
		}).Debug("probe")
	}
	return probe.WriteYAML(w, probe.Suggest(cfg, r))
}

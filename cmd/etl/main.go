package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"etlcore/internal/config"
	"etlcore/internal/datasource/file"
	"etlcore/internal/logging"
	"etlcore/internal/metrics"
	"etlcore/internal/metrics/datadog"
	"etlcore/internal/metrics/prompush"

	// register all ledger backends with the storage factory.
	_ "etlcore/internal/storage/all"
)

// inputList collects a repeatable -input flag.
type inputList []string

func (l *inputList) String() string { return strings.Join(*l, ",") }

func (l *inputList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// cliOptions holds parsed flags.
type cliOptions struct {
	cfgPath        string
	inputs         inputList
	inputsFile     string
	output         string
	validate       bool
	probe          bool
	verbose        bool
	logFormat      string
	metricsBackend string
	pushGatewayURL string
	datadogAddr    string
	parallel       int
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run is main without the process exit, returning the exit code: 0 when
// every input succeeded, 1 when any run or the config failed, 2 for usage
// errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, loadErr := config.Load(opts.cfgPath)
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	cfg.Logging.Output = stderr
	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	if loadErr != nil {
		log.WithError(loadErr).Warn("config: falling back to defaults")
	}

	// Validate pipeline config.
	hasError := false
	for _, iss := range config.ValidatePipeline(cfg) {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Errorf("configuration is invalid: %s", opts.cfgPath)
		return 1
	}
	if opts.validate {
		log.Infof("configuration is valid: %s", opts.cfgPath)
		return 0
	}

	inputs := append([]string(nil), opts.inputs...)
	if opts.inputsFile != "" {
		more, err := file.ReadList(opts.inputsFile)
		if err != nil {
			log.WithError(err).Error("read inputs file")
			return 2
		}
		inputs = append(inputs, more...)
	}
	if len(inputs) == 0 {
		fmt.Fprintln(stderr, "no input given: use -input or -inputs-file")
		return 2
	}

	if opts.probe {
		if err := probeInput(ctx, log, cfg, inputs[0], stdout); err != nil {
			log.WithError(err).Error("probe failed")
			return 1
		}
		return 0
	}

	setupMetrics(log, opts, cfg.Job)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.WithError(err).Warn("metrics: flush error")
		}
	}()

	results, err := runAll(ctx, log, cfg, inputs, opts.output, newRuntimeConfig(opts))
	if err != nil {
		log.WithError(err).Error("ETL setup failed")
		return 1
	}
	if err := printResults(stdout, results); err != nil {
		log.WithError(err).Error("write results")
		return 1
	}
	for _, r := range results {
		if !r.OK() {
			return 1
		}
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var o cliOptions
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.cfgPath, "config", "", "pipeline config path (.json, .yaml or .yml); empty uses defaults")
	fs.Var(&o.inputs, "input", "input file or http(s) URL (repeatable)")
	fs.StringVar(&o.inputsFile, "inputs-file", "", "file listing one input per line")
	fs.StringVar(&o.output, "output", "", "destination file, directory or s3:// URL (overrides output.destination)")
	fs.BoolVar(&o.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&o.probe, "probe", false, "inspect the first input and print a suggested config as YAML")
	fs.BoolVar(&o.verbose, "v", false, "enable verbose logs")
	fs.StringVar(&o.logFormat, "log-format", "", "log format: text or json (overrides logging.format)")
	fs.StringVar(&o.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (env METRICS_BACKEND)")
	fs.StringVar(&o.pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	fs.StringVar(&o.datadogAddr, "datadog-addr", "", "DogStatsD address (env DD_DOGSTATSD_ADDR)")
	fs.IntVar(&o.parallel, "parallel", 0, "pipelines run at once (env ETL_PARALLEL, default 4)")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	// bare arguments are inputs too
	o.inputs = append(o.inputs, fs.Args()...)
	return o, nil
}

// setupMetrics installs the chosen backend. Decision order for each value is
// flag, then env, then default. Failures leave the nop backend in place.
func setupMetrics(log logrus.FieldLogger, o cliOptions, job string) {
	backendName := firstNonEmpty(o.metricsBackend, os.Getenv("METRICS_BACKEND"))
	if job == "" {
		job = "etl_job"
	}

	switch backendName {
	case "pushgateway":
		gwURL := firstNonEmpty(o.pushGatewayURL, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.WithError(err).Warn("metrics: failed to init prom push backend; using nop")
			return
		}
		metrics.SetBackend(b)
		log.WithFields(logrus.Fields{"backend": backendName, "url": gwURL, "job_name": job}).Info("metrics enabled")

	case "datadog":
		addr := firstNonEmpty(o.datadogAddr, os.Getenv("DD_DOGSTATSD_ADDR"), "127.0.0.1:8125")
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "etl.",
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			log.WithError(err).Warn("metrics: failed to init datadog backend; using nop")
			return
		}
		metrics.SetBackend(b)
		log.WithFields(logrus.Fields{"backend": backendName, "addr": addr}).Info("metrics enabled")

	case "", "none":
		log.WithField("backend", backendName).Debug("metrics disabled")

	default:
		log.Warnf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Command i94etl builds the i94 star schema from the raw immigration,
// demographics, temperature and label sources.
//
//	i94etl validate --config job.yaml
//	i94etl run --config job.yaml --credentials dl.cfg
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"i94etl/internal/config"
	"i94etl/internal/etl"
	"i94etl/internal/mapper"
	"i94etl/internal/metrics"
	"i94etl/internal/metrics/datadog"
	"i94etl/internal/metrics/prompush"

	// register all backends with the storage factory.
	_ "i94etl/internal/storage/all"
)

type flags struct {
	configPath      string
	credentialsPath string
	metricsBackend  string
	pushgatewayURL  string
	datadogAddr     string
	verbose         bool
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code. Errors
// are printed to stderr since cobra's own reporting is silenced.
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "i94etl: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           "i94etl",
		Short:         "Build the i94 star schema as Parquet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "job file (YAML, or JSON by .json extension); empty uses defaults")
	pf.StringVar(&f.credentialsPath, "credentials", "", "legacy dl.cfg INI with an [AWS] section")
	pf.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides env METRICS_BACKEND)")
	pf.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	pf.StringVar(&f.datadogAddr, "datadog-addr", "", "DogStatsD address (overrides env DD_DOGSTATSD_ADDR)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Lint the job configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := loadJob(f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: job=%s output=%s\n", j.Job, j.Output.Root)
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run all four mappers in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := loadJob(f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, j, f.verbose)
		},
	})
	return root
}

// loadJob builds the effective job: file, then credentials file, then env,
// then flags. Issues are printed; any error-severity issue fails.
func loadJob(f flags, stderr io.Writer) (config.Job, error) {
	j := config.Default()
	if f.configPath != "" {
		var err error
		if j, err = config.Load(f.configPath); err != nil {
			return j, err
		}
	}
	if f.credentialsPath != "" {
		if err := config.LoadCredentials(f.credentialsPath, &j.AWS); err != nil {
			return j, err
		}
	}
	config.ApplyEnv(&j, os.Getenv)
	if f.metricsBackend != "" {
		j.Metrics.Backend = f.metricsBackend
	}
	if f.pushgatewayURL != "" {
		j.Metrics.PushgatewayURL = f.pushgatewayURL
	}
	if f.datadogAddr != "" {
		j.Metrics.DatadogAddr = f.datadogAddr
	}

	issues := config.ValidateJob(j)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return j, fmt.Errorf("configuration is invalid: %s", f.configPath)
	}
	return j, nil
}

func run(ctx context.Context, j config.Job, verbose bool) error {
	log, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	undo := zap.ReplaceGlobals(log)
	defer undo()

	flush := setupMetrics(j, log)
	defer flush()

	start := time.Now()
	s, err := etl.NewSession(ctx, j, log)
	if err != nil {
		log.Error("etl: session", zap.Error(err))
		return err
	}
	if err := etl.Run(ctx, s, mapper.All()...); err != nil {
		return err
	}
	log.Info("etl: completed", zap.String("run_id", s.RunID), zap.Duration("took", time.Since(start).Truncate(time.Millisecond)))
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// setupMetrics installs the configured backend and returns its flush func.
// A backend that fails to initialise leaves metrics disabled.
func setupMetrics(j config.Job, log *zap.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch j.Metrics.Backend {
	case "pushgateway":
		b, err = prompush.NewBackend(j.Job, j.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       j.Metrics.DatadogAddr,
			Namespace:  j.Metrics.Namespace,
			GlobalTags: j.Metrics.Tags,
		})
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}
	default:
		log.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", j.Metrics.Backend))
		return func() {}
	}
	if err != nil {
		log.Warn("metrics: init failed; using nop", zap.String("backend", j.Metrics.Backend), zap.Error(err))
		return func() {}
	}
	log.Info("metrics: enabled", zap.String("backend", j.Metrics.Backend), zap.String("job", j.Job))
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush error", zap.Error(err))
		}
	}
}

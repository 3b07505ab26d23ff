package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mvdvldn03/ATLPublicTransit/config"
	"github.com/mvdvldn03/ATLPublicTransit/driver"
	"github.com/mvdvldn03/ATLPublicTransit/input"
	"github.com/mvdvldn03/ATLPublicTransit/models"
	"github.com/mvdvldn03/ATLPublicTransit/parser"
	"github.com/mvdvldn03/ATLPublicTransit/pipeline"
	"github.com/mvdvldn03/ATLPublicTransit/scraper"
)

type runFlags struct {
	configFile  string
	input       string
	column      string
	mode        string
	driver      string
	snapshotDir string
	remoteURL   string
	headless    bool
	output      string
	format      string
	metricsAddr string
	stepDelay   time.Duration
	randomDelay time.Duration
	opTimeout   time.Duration
	cacheSize   int
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Measure every area group of the input table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return runMeasure(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
	bindRunFlags(cmd, flags)
	return cmd
}

func bindRunFlags(cmd *cobra.Command, flags *runFlags) {
	defaults := config.DefaultConfig()

	f := cmd.Flags()
	f.StringVar(&flags.configFile, "config", "", "YAML config file")
	f.StringVar(&flags.input, "input", defaults.InputFile, "Statistical-area CSV (path or http(s) URL)")
	f.StringVar(&flags.column, "column", defaults.InputColumn, "CSV column holding the area group")
	f.StringVar(&flags.mode, "mode", defaults.Mode, "Metric to extract: time or distance")
	f.StringVar(&flags.driver, "driver", defaults.Driver, "UI driver: rod or snapshot")
	f.StringVar(&flags.snapshotDir, "snapshot-dir", "", "Directory of recorded directions pages (snapshot driver)")
	f.StringVar(&flags.remoteURL, "remote-url", "", "DevTools WebSocket URL of a running Chrome")
	f.BoolVar(&flags.headless, "headless", defaults.Headless, "Run the launched Chrome headless")
	f.StringVar(&flags.output, "output", "", "Also write group metrics to this file")
	f.StringVar(&flags.format, "format", defaults.OutputFormat, "Output format: csv, json, or dual")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	f.DurationVar(&flags.stepDelay, "step-delay", defaults.StepDelay, "Pause before each UI step")
	f.DurationVar(&flags.randomDelay, "random-delay", defaults.RandomDelay, "Upper bound of the random pause after each probe")
	f.DurationVar(&flags.opTimeout, "op-timeout", defaults.OpTimeout, "Timeout of a single UI operation")
	f.IntVar(&flags.cacheSize, "cache-size", defaults.CacheSize, "Successful area values to remember (0 disables)")
}

// loadConfig layers defaults, the optional YAML file, ATLCOMMUTE_* variables
// and explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command, flags *runFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configFile != "" {
		loaded, err := config.LoadFile(flags.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	set := cmd.Flags().Changed
	if set("input") {
		cfg.InputFile = flags.input
	}
	if set("column") {
		cfg.InputColumn = flags.column
	}
	if set("mode") {
		cfg.Mode = flags.mode
	}
	if set("driver") {
		cfg.Driver = flags.driver
	}
	if set("snapshot-dir") {
		cfg.SnapshotDir = flags.snapshotDir
	}
	if set("remote-url") {
		cfg.RemoteURL = flags.remoteURL
	}
	if set("headless") {
		cfg.Headless = flags.headless
	}
	if set("output") {
		cfg.OutputFile = flags.output
	}
	if set("format") {
		cfg.OutputFormat = strings.ToLower(flags.format)
	}
	if set("metrics-addr") {
		cfg.MetricsAddr = flags.metricsAddr
	}
	if set("step-delay") {
		cfg.StepDelay = flags.stepDelay
	}
	if set("random-delay") {
		cfg.RandomDelay = flags.randomDelay
	}
	if set("op-timeout") {
		cfg.OpTimeout = flags.opTimeout
	}
	if set("cache-size") {
		cfg.CacheSize = flags.cacheSize
	}
	if set("verbose") {
		cfg.Verbose, _ = cmd.Flags().GetBool("verbose")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *config.Config) error {
	strs := map[string]*string{
		"ATLCOMMUTE_INPUT":        &cfg.InputFile,
		"ATLCOMMUTE_COLUMN":       &cfg.InputColumn,
		"ATLCOMMUTE_MODE":         &cfg.Mode,
		"ATLCOMMUTE_DRIVER":       &cfg.Driver,
		"ATLCOMMUTE_SNAPSHOT_DIR": &cfg.SnapshotDir,
		"ATLCOMMUTE_REMOTE_URL":   &cfg.RemoteURL,
		"ATLCOMMUTE_OUTPUT":       &cfg.OutputFile,
		"ATLCOMMUTE_FORMAT":       &cfg.OutputFormat,
		"ATLCOMMUTE_METRICS_ADDR": &cfg.MetricsAddr,
	}
	for key, dst := range strs {
		if value, ok := config.EnvString(key); ok {
			*dst = value
		}
	}

	durations := map[string]*time.Duration{
		"ATLCOMMUTE_STEP_DELAY":   &cfg.StepDelay,
		"ATLCOMMUTE_RANDOM_DELAY": &cfg.RandomDelay,
		"ATLCOMMUTE_OP_TIMEOUT":   &cfg.OpTimeout,
	}
	for key, dst := range durations {
		value, ok, err := config.EnvDuration(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	if value, ok, err := config.EnvInt("ATLCOMMUTE_CACHE_SIZE"); err != nil {
		return err
	} else if ok {
		cfg.CacheSize = value
	}
	return nil
}

func runMeasure(ctx context.Context, stdout io.Writer, cfg *config.Config) error {
	if cfg.Verbose {
		logLevel.Set(slog.LevelDebug)
	}
	logger := slog.Default()

	mode, err := parser.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	fetcher := input.NewFetcher(input.FetcherConfig{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	})
	groups, err := input.LoadGroups(ctx, cfg.InputFile, cfg.InputColumn, fetcher)
	if err != nil {
		return fmt.Errorf("load area groups: %w", err)
	}
	logger.Info("loaded area groups",
		slog.String("source", cfg.InputFile),
		slog.Int("groups", len(groups)),
	)

	open, err := newOpener(cfg, mode, logger)
	if err != nil {
		return err
	}

	runnerOpts := []scraper.RunnerOption{
		scraper.WithReporter(scraper.NewReporter(stdout, mode)),
		scraper.WithLogger(logger),
	}
	var out *pipeline.Pipeline
	if cfg.OutputFile != "" {
		writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("create writer: %w", err)
		}
		out = pipeline.NewPipeline(writer, cfg.BatchSize, logger)
		out.Start()
		runnerOpts = append(runnerOpts, scraper.WithOutput(out))
	}

	runner := scraper.NewRunner(open, scraper.ProbeConfig{
		Mode:        mode,
		QuerySuffix: cfg.QuerySuffix,
		BaselineURL: cfg.BaselineURL,
		StepDelay:   cfg.StepDelay,
		RandomDelay: cfg.RandomDelay,
		CacheSize:   cfg.CacheSize,
	}, runnerOpts...)

	stopMetrics := serveMetrics(cfg.MetricsAddr, runner, logger)
	defer stopMetrics()

	result, runErr := runner.Run(ctx, groups)

	var written int
	var rejected map[string]int
	if out != nil {
		if err := out.Close(); err != nil {
			logger.Error("output shutdown failed", slog.Any("error", err))
		} else if err := out.Validate(); err != nil {
			logger.Warn("output validation failed", slog.Any("error", err))
		}
		written, rejected = out.Stats()
	}

	if result == nil {
		return fmt.Errorf("measurement run failed: %w", runErr)
	}
	if errors.Is(runErr, context.Canceled) {
		logger.Warn("run interrupted, reporting completed groups",
			slog.Int("completed", len(result.Metrics)),
			slog.Int("groups", len(groups)),
		)
	}

	printSummary(stdout, result, cfg.OutputFile, written, rejected)
	fmt.Fprintln(stdout, formatValues(mode, result.Values()))
	return runErr
}

func newOpener(cfg *config.Config, mode parser.Mode, logger *slog.Logger) (driver.Opener, error) {
	selectors := driver.Selectors(cfg.Selectors)
	switch cfg.Driver {
	case "snapshot":
		return driver.SnapshotOpener(cfg.SnapshotDir, selectors), nil
	case "rod":
		return driver.RodOpener(driver.RodConfig{
			RemoteURL:        cfg.RemoteURL,
			Headless:         cfg.Headless,
			Stealth:          cfg.Stealth,
			UserAgent:        cfg.UserAgent,
			WindowWidth:      cfg.WindowWidth,
			WindowHeight:     cfg.WindowHeight,
			Selectors:        selectors,
			OpTimeout:        cfg.OpTimeout,
			PollInterval:     cfg.PollInterval,
			ResourceBlocking: cfg.BlockResources,
			Ready:            func(text string) bool { return parser.Ready(mode, text) },
			Logger:           logger,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}

// serveMetrics exposes the runner's registry on addr and returns a function
// that shuts the server down. An empty addr serves nothing.
func serveMetrics(addr string, runner *scraper.Runner, logger *slog.Logger) func() {
	if addr == "" || runner.Metrics == nil {
		return func() {}
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(runner.Metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func printSummary(w io.Writer, result *models.RunResult, outputFile string, written int, rejected map[string]int) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Measurement complete")

	scored := 0
	for _, m := range result.Metrics {
		if !m.Empty() {
			scored++
		}
	}
	successRate := 0.0
	if result.ProbeCount > 0 {
		successRate = float64(result.ProbeCount-result.FailureCount) / float64(result.ProbeCount) * 100
	}

	fmt.Fprintf(w, "  Groups:        %d (%d without a route)\n", len(result.Metrics), len(result.Metrics)-scored)
	fmt.Fprintf(w, "  Probes:        %d\n", result.ProbeCount)
	fmt.Fprintf(w, "  Success rate:  %.2f%%\n", successRate)
	fmt.Fprintf(w, "  Resets:        %d\n", result.ResetCount)
	fmt.Fprintf(w, "  Cache hits:    %d\n", result.CacheHits)
	if len(result.FailuresByType) > 0 {
		fmt.Fprintf(w, "  Failure types: %v\n", result.FailuresByType)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	if outputFile != "" {
		fmt.Fprintf(w, "  Output file:   %s (%d rows)\n", outputFile, written)
		if len(rejected) > 0 {
			fmt.Fprintf(w, "  Rejected:      %v\n", rejected)
		}
	}
	fmt.Fprintln(w, separator)
}

// formatValues renders the metric list as one bracketed line.
func formatValues(mode parser.Mode, values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = scraper.FormatValue(mode, v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvdvldn03/ATLPublicTransit/driver"
	"github.com/mvdvldn03/ATLPublicTransit/models"
	"github.com/mvdvldn03/ATLPublicTransit/pipeline"
)

// Runner drives a whole measurement run over one UI session.
type Runner struct {
	open    driver.Opener
	cfg     ProbeConfig
	Metrics *Metrics
	report  *Reporter
	writer  pipeline.OutputWriter
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithReporter prints progress lines through r.
func WithReporter(r *Reporter) RunnerOption {
	return func(rn *Runner) { rn.report = r }
}

// WithOutput forwards every finished group metric to w.
func WithOutput(w pipeline.OutputWriter) RunnerOption {
	return func(rn *Runner) { rn.writer = w }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(rn *Runner) { rn.logger = l }
}

// NewRunner builds a Runner that obtains its session from open.
func NewRunner(open driver.Opener, cfg ProbeConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		open:    open,
		cfg:     cfg,
		Metrics: NewMetrics(),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run opens a session, navigates it to the baseline route and measures
// every group in order. On success the result holds exactly one metric per
// group, in input order. If ctx is canceled, the metrics completed so far
// are returned together with ctx's error.
func (r *Runner) Run(ctx context.Context, groups []models.AreaGroup) (result *models.RunResult, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.open == nil {
		return nil, errors.New("runner: no session opener")
	}

	session, err := r.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.logger.Error("close session", slog.Any("error", cerr))
		}
	}()

	if err := session.Reset(ctx, r.cfg.BaselineURL); err != nil {
		return nil, fmt.Errorf("initial navigation: %w", err)
	}

	reset := func(ctx context.Context) error {
		return session.Reset(ctx, r.cfg.BaselineURL)
	}
	prober, err := NewProber(session, reset, r.cfg,
		WithProbeMetrics(r.Metrics),
		WithProbeReporter(r.report),
		WithProbeLogger(r.logger),
	)
	if err != nil {
		return nil, err
	}

	result = &models.RunResult{
		Metrics:   make([]*models.GroupMetric, 0, len(groups)),
		StartTime: time.Now(),
	}
	defer func() {
		stats := prober.Stats()
		result.EndTime = time.Now()
		result.ProbeCount = stats.Probes
		result.FailureCount = stats.Failures
		result.ResetCount = stats.Resets
		result.CacheHits = stats.CacheHits
		result.FailuresByType = stats.FailuresByType
	}()

	r.logger.Info("measurement run started",
		slog.Int("groups", len(groups)),
		slog.String("mode", string(r.cfg.Mode)),
	)

	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		metric := Aggregate(ctx, prober, i+1, group)
		if err := ctx.Err(); err != nil {
			// The group was cut short; its mean would be misleading.
			return result, err
		}

		result.Metrics = append(result.Metrics, metric)
		if metric.Empty() {
			r.Metrics.IncGroup("empty")
		} else {
			r.Metrics.IncGroup("scored")
		}
		r.report.GroupDone(metric)
		r.logger.Debug("group measured",
			slog.Int("index", metric.Index),
			slog.Float64("value", metric.Value),
			slog.Int("successes", metric.Successes),
			slog.Int("failures", metric.Failures),
		)

		if r.writer != nil {
			if err := r.writer.Write([]*models.GroupMetric{metric}); err != nil {
				r.logger.Error("write group metric", slog.Int("index", metric.Index), slog.Any("error", err))
			}
		}
	}

	return result, nil
}

package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mvdvldn03/ATLPublicTransit/driver"
	"github.com/mvdvldn03/ATLPublicTransit/models"
	"github.com/mvdvldn03/ATLPublicTransit/parser"
)

// ProbeConfig configures how a single area is measured.
type ProbeConfig struct {
	Mode        parser.Mode
	QuerySuffix string
	BaselineURL string

	// StepDelay is waited before each UI step; RandomDelay bounds the
	// random pause after every probe.
	StepDelay   time.Duration
	RandomDelay time.Duration

	// CacheSize is the number of successful area values remembered.
	// Zero disables the cache.
	CacheSize int
}

// ResetFunc returns the session to the baseline route.
type ResetFunc func(ctx context.Context) error

// ProbeStats counts what a Prober did.
type ProbeStats struct {
	Probes         int
	Failures       int
	Resets         int
	CacheHits      int
	FailuresByType map[string]int
}

// Prober measures one area at a time through a UI session. It is not safe
// for concurrent use; the session it drives is single-threaded.
type Prober struct {
	ui      driver.UIDriver
	reset   ResetFunc
	cfg     ProbeConfig
	pace    pacer
	cache   *lru.Cache[string, float64]
	metrics *Metrics
	report  *Reporter
	logger  *slog.Logger

	stats ProbeStats
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProbeMetrics records probe outcomes on m.
func WithProbeMetrics(m *Metrics) ProberOption {
	return func(p *Prober) { p.metrics = m }
}

// WithProbeReporter prints failed areas through r.
func WithProbeReporter(r *Reporter) ProberOption {
	return func(p *Prober) { p.report = r }
}

// WithProbeLogger sets a custom logger.
func WithProbeLogger(l *slog.Logger) ProberOption {
	return func(p *Prober) { p.logger = l }
}

// NewProber builds a Prober over ui. reset is invoked after every failed
// probe; a nil reset falls back to ui.Reset with the configured baseline.
func NewProber(ui driver.UIDriver, reset ResetFunc, cfg ProbeConfig, opts ...ProberOption) (*Prober, error) {
	if ui == nil {
		return nil, fmt.Errorf("prober: nil UI driver")
	}
	if cfg.Mode == "" {
		cfg.Mode = parser.ModeTime
	}
	if reset == nil {
		baseline := cfg.BaselineURL
		reset = func(ctx context.Context) error { return ui.Reset(ctx, baseline) }
	}

	p := &Prober{
		ui:     ui,
		reset:  reset,
		cfg:    cfg,
		pace:   newPacer(cfg.StepDelay, cfg.RandomDelay),
		logger: slog.Default(),
		stats:  ProbeStats{FailuresByType: make(map[string]int)},
	}
	for _, o := range opts {
		o(p)
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, float64](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("prober: create cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// Query composes the search text for area.
func (p *Prober) Query(area string) string {
	return strings.TrimSpace(area + " " + p.cfg.QuerySuffix)
}

// Probe measures area and never returns an error: every failure becomes a
// Failure result, and the session is reset before Probe returns so the
// next probe starts from the baseline route.
func (p *Prober) Probe(ctx context.Context, area string) models.ProbeResult {
	if p.cache != nil {
		if value, ok := p.cache.Get(area); ok {
			p.stats.CacheHits++
			p.metrics.IncCacheHit()
			p.logger.Debug("probe cache hit", slog.String("area", area), slog.Float64("value", value))
			res := models.Success(area, value)
			res.Cached = true
			return res
		}
	}

	start := time.Now()
	p.stats.Probes++

	var res models.ProbeResult
	value, err := p.measure(ctx, area)
	if err != nil {
		res = p.fail(ctx, area, err)
	} else {
		res = models.Success(area, value)
		p.metrics.IncProbe("success")
		if p.cache != nil {
			p.cache.Add(area, value)
		}
		p.logger.Debug("probe succeeded",
			slog.String("area", area),
			slog.Float64("value", value),
			slog.String("mode", string(p.cfg.Mode)),
		)
	}
	res.Duration = time.Since(start)
	p.metrics.ObserveDuration(res.Duration)

	if err := p.pace.Jitter(ctx); err != nil {
		p.logger.Debug("probe jitter interrupted", slog.Any("error", err))
	}
	return res
}

// Stats returns a copy of the counters gathered so far.
func (p *Prober) Stats() ProbeStats {
	out := p.stats
	out.FailuresByType = make(map[string]int, len(p.stats.FailuresByType))
	for k, v := range p.stats.FailuresByType {
		out.FailuresByType[k] = v
	}
	return out
}

func (p *Prober) measure(ctx context.Context, area string) (float64, error) {
	if err := p.pace.Step(ctx); err != nil {
		return 0, err
	}
	if err := p.ui.Search(ctx, p.Query(area)); err != nil {
		return 0, err
	}
	if err := p.pace.Step(ctx); err != nil {
		return 0, err
	}
	if err := p.ui.SelectFirstResult(ctx); err != nil {
		return 0, err
	}
	if err := p.pace.Step(ctx); err != nil {
		return 0, err
	}
	text, err := p.ui.ReadItineraryText(ctx)
	if err != nil {
		return 0, err
	}
	return parser.Parse(p.cfg.Mode, text)
}

func (p *Prober) fail(ctx context.Context, area string, err error) models.ProbeResult {
	label := failureLabel(err)
	p.stats.Failures++
	p.stats.FailuresByType[label]++
	p.metrics.IncProbe("failure")
	p.metrics.IncFailure(label)

	p.logger.Warn("no route found",
		slog.String("area", area),
		slog.String("error_type", label),
		slog.Any("error", err),
	)
	p.report.AreaFailed(area)

	// A canceled run is about to close the session; resetting it is moot.
	if ctx.Err() == nil {
		p.stats.Resets++
		p.metrics.IncReset()
		if rerr := p.reset(ctx); rerr != nil {
			p.logger.Error("session reset failed",
				slog.String("area", area),
				slog.Any("error", rerr),
			)
		}
	}
	return models.Failure(area, err)
}

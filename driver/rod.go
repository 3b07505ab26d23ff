package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Selectors locate the UI affordances the driver interacts with. They are
// structural markers of an undocumented UI and may need updating when the
// remote page changes.
type Selectors struct {
	SearchInput    string
	FirstResult    string
	ItineraryPanel string
}

// DefaultSelectors match the directions view of the maps UI.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchInput:    "input.tactile-searchbox-input",
		FirstResult:    "div[role='gridcell']",
		ItineraryPanel: "#section-directions-trip-0",
	}
}

// RodConfig configures a Chrome session driven through Rod.
type RodConfig struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local Chrome.
	RemoteURL string

	Headless     bool
	Stealth      bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int

	Selectors Selectors

	// OpTimeout bounds every single UI operation, navigation included.
	OpTimeout    time.Duration
	PollInterval time.Duration

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	// Ready reports whether itinerary text is fully rendered. Nil accepts
	// any non-empty text.
	Ready func(text string) bool

	Logger *slog.Logger
}

func (c *RodConfig) defaults() {
	if c.Selectors == (Selectors{}) {
		c.Selectors = DefaultSelectors()
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 15 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		c.WindowWidth, c.WindowHeight = 1920, 1080
	}
	if c.Ready == nil {
		c.Ready = func(text string) bool { return strings.TrimSpace(text) != "" }
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Rod is a Session backed by a single Chrome tab.
type Rod struct {
	cfg     RodConfig
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
	router  *rod.HijackRouter
	closed  bool
}

// RodOpener returns an Opener that launches a fresh Rod session per call.
func RodOpener(cfg RodConfig) Opener {
	return func(ctx context.Context) (Session, error) {
		return OpenRod(ctx, cfg)
	}
}

// OpenRod launches (or connects to) Chrome and opens a blank tab. Callers
// navigate it with Reset. The returned session must be closed by the caller.
func OpenRod(ctx context.Context, cfg RodConfig) (*Rod, error) {
	cfg.defaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := &Rod{cfg: cfg}
	if err := d.launch(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.openPage(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Rod) launch() error {
	log := d.cfg.Logger

	wsURL := d.cfg.RemoteURL
	if wsURL != "" {
		log.Info("driver: connecting to remote chrome", slog.String("url", wsURL))
	} else {
		l := launcher.New().Headless(d.cfg.Headless)
		l = l.Set("window-size", fmt.Sprintf("%d,%d", d.cfg.WindowWidth, d.cfg.WindowHeight))
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("driver: launch: %w", err)
		}
		wsURL = u
		d.lnch = l
		log.Info("driver: launched local chrome",
			slog.String("url", wsURL),
			slog.Bool("headless", d.cfg.Headless),
		)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("driver: connect: %w", err)
	}
	d.browser = b
	return nil
}

func (d *Rod) openPage() error {
	var (
		page *rod.Page
		err  error
	)
	if d.cfg.Stealth {
		page, err = stealth.Page(d.browser)
	} else {
		page, err = d.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return fmt.Errorf("driver: create tab: %w", err)
	}
	d.page = page

	if d.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: d.cfg.UserAgent}); err != nil {
			return fmt.Errorf("driver: set user agent: %w", err)
		}
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             d.cfg.WindowWidth,
		Height:            d.cfg.WindowHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		d.cfg.Logger.Warn("driver: set viewport failed", slog.Any("error", err))
	}

	if len(d.cfg.ResourceBlocking) > 0 {
		d.router = blockResources(page, d.cfg.ResourceBlocking)
	}
	return nil
}

// Search clears the search box and types query. It returns once the result
// grid has rendered.
func (d *Rod) Search(ctx context.Context, query string) error {
	if d.closed {
		return uiErr(OpSearch, "", ErrSessionClosed)
	}
	sel := d.cfg.Selectors.SearchInput
	err := d.withElement(ctx, OpSearch, sel, func(el *rod.Element) error {
		if err := el.SelectAllText(); err != nil {
			return fmt.Errorf("select existing text: %w", err)
		}
		if err := el.Type(input.Backspace); err != nil {
			return fmt.Errorf("clear input: %w", err)
		}
		return el.Input(query)
	})
	if err != nil {
		return err
	}

	grid := d.cfg.Selectors.FirstResult
	if err := Poll(ctx, d.wait(), d.present(grid)); err != nil {
		return uiErr(OpSearch, grid, notFound(err))
	}
	return nil
}

// SelectFirstResult clicks the first cell of the results grid.
func (d *Rod) SelectFirstResult(ctx context.Context) error {
	if d.closed {
		return uiErr(OpSelect, "", ErrSessionClosed)
	}
	return d.withElement(ctx, OpSelect, d.cfg.Selectors.FirstResult, func(el *rod.Element) error {
		return el.Click(proto.InputMouseButtonLeft, 1)
	})
}

// ReadItineraryText waits for the itinerary panel to render and returns its
// text. If the panel appears but never satisfies Ready, the last text read is
// returned and left for the parser to reject.
func (d *Rod) ReadItineraryText(ctx context.Context) (string, error) {
	if d.closed {
		return "", uiErr(OpRead, "", ErrSessionClosed)
	}
	sel := d.cfg.Selectors.ItineraryPanel

	var (
		text  string
		found bool
	)
	err := Poll(ctx, d.wait(), func(pctx context.Context) (bool, error) {
		has, el, err := d.page.Context(pctx).Has(sel)
		if err != nil {
			return false, err
		}
		if !has {
			return false, nil
		}
		t, err := el.Text()
		if err != nil {
			return false, err
		}
		text, found = t, true
		return d.cfg.Ready(t), nil
	})
	if err != nil {
		if found && errors.Is(err, ErrWaitTimeout) {
			d.cfg.Logger.Debug("driver: itinerary not ready, returning partial text", slog.String("selector", sel))
			return text, nil
		}
		return "", uiErr(OpRead, sel, notFound(err))
	}
	return text, nil
}

// Reset navigates the tab to baselineURL and waits for the page to load.
func (d *Rod) Reset(ctx context.Context, baselineURL string) error {
	if d.closed {
		return uiErr(OpReset, "", ErrSessionClosed)
	}
	navCtx, cancel := context.WithTimeout(ctx, d.cfg.OpTimeout)
	defer cancel()

	page := d.page.Context(navCtx)
	if err := page.Navigate(baselineURL); err != nil {
		return uiErr(OpReset, "", fmt.Errorf("navigate %s: %w", baselineURL, err))
	}
	if err := page.WaitLoad(); err != nil {
		d.cfg.Logger.Warn("driver: wait load", slog.String("url", baselineURL), slog.Any("error", err))
	}
	return nil
}

// Close shuts the tab, the browser and any launched Chrome process.
func (d *Rod) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if d.router != nil {
		if err := d.router.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop hijack router: %w", err))
		}
	}
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if d.lnch != nil {
		d.lnch.Cleanup()
	}
	return errors.Join(errs...)
}

func (d *Rod) wait() Wait {
	return Wait{Timeout: d.cfg.OpTimeout, Interval: d.cfg.PollInterval}
}

func (d *Rod) present(selector string) Condition {
	return func(ctx context.Context) (bool, error) {
		has, _, err := d.page.Context(ctx).Has(selector)
		return has, err
	}
}

func (d *Rod) withElement(ctx context.Context, op, selector string, fn func(el *rod.Element) error) error {
	opCtx, cancel := context.WithTimeout(ctx, d.cfg.OpTimeout)
	defer cancel()

	el, err := d.page.Context(opCtx).Element(selector)
	if err != nil {
		if opCtx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("%w within %v", ErrElementNotFound, d.cfg.OpTimeout)
		}
		return uiErr(op, selector, err)
	}
	return uiErr(op, selector, fn(el))
}

// notFound maps an expired wait onto ErrElementNotFound so callers can
// classify it without knowing about polling.
func notFound(err error) error {
	if errors.Is(err, ErrWaitTimeout) {
		return fmt.Errorf("%w: %v", ErrElementNotFound, err)
	}
	return err
}

func blockResources(page *rod.Page, types []string) *rod.HijackRouter {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if shouldBlock(blockSet, string(h.Request.Type())) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

func shouldBlock(blockSet map[string]bool, resType string) bool {
	switch lower := strings.ToLower(resType); lower {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	default:
		return blockSet[lower]
	}
}

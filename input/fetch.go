package input

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// FetcherConfig configures remote table downloads.
type FetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

// Fetcher downloads input tables over HTTP through colly.
type Fetcher struct {
	cfg       FetcherConfig
	transport http.RoundTripper
}

// NewFetcher builds a Fetcher. Zero config fields use defaults.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		cfg: cfg,
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

func (f *Fetcher) newCollector() *colly.Collector {
	var opts []colly.CollectorOption
	if f.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(f.cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(f.cfg.Timeout)
	c.WithTransport(f.transport)
	return c
}

// Fetch downloads rawURL and returns the response body. Non-2xx responses
// are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		body     []byte
		fetchErr error
	)
	c := f.newCollector()
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch %s: status %d: %w", rawURL, status, err)
	})

	start := time.Now()
	if err := c.Visit(rawURL); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	f.cfg.Logger.Debug("fetched input table",
		slog.String("url", rawURL),
		slog.Int("bytes", len(body)),
		slog.Duration("duration", time.Since(start)),
	)
	return body, nil
}

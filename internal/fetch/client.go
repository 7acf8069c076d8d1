// Package fetch implements the HTTP fetcher used by crawls: a colly backed
// page client with per-host robots caching and a randomized politeness delay.
package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// Config holds the fetcher knobs taken from the crawler section of the
// application configuration.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	DelayMin  time.Duration
	DelayMax  time.Duration
}

// Client implements monitor.Fetcher. Robots enforcement happens in this
// package rather than inside colly so that failures fail open and the cache
// is shared with the Allowed check the crawler performs before enqueueing.
type Client struct {
	cfg    Config
	base   *colly.Collector
	robots *robotsCache
	logger *zap.Logger
}

var _ monitor.Fetcher = (*Client)(nil)

// New returns a Client configured from cfg. Each Fetch clones the base
// collector so response callbacks never leak between requests.
func New(cfg Config, logger *zap.Logger) *Client {
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
	)
	base.SetRequestTimeout(cfg.Timeout)
	return &Client{
		cfg:    cfg,
		base:   base,
		robots: newRobotsCache(cfg.UserAgent, logger),
		logger: logger,
	}
}

// Allowed reports whether robots.txt permits fetching rawURL.
func (c *Client) Allowed(ctx context.Context, rawURL string) bool {
	return c.robots.Allowed(ctx, rawURL)
}

// Delay sleeps for a random duration within the configured politeness window,
// or returns early with the context error if ctx is cancelled first.
func (c *Client) Delay(ctx context.Context) error {
	d := c.cfg.DelayMin
	if span := c.cfg.DelayMax - c.cfg.DelayMin; span > 0 {
		d += time.Duration(rand.Int63n(int64(span) + 1))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fetch performs a GET for rawURL and returns the response status, body and
// elapsed time. Non-2xx responses are returned as a FetchResponse with the
// observed status code, not as an error; errors mean no HTTP response at all.
func (c *Client) Fetch(ctx context.Context, rawURL string) (monitor.FetchResponse, error) {
	resp := monitor.FetchResponse{URL: rawURL}
	if err := ctx.Err(); err != nil {
		return resp, err
	}
	start := time.Now()

	collector := c.base.Clone()
	var netErr error
	collector.OnResponse(func(r *colly.Response) {
		resp.StatusCode = r.StatusCode
		resp.Body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			resp.StatusCode = r.StatusCode
			resp.Body = r.Body
			return
		}
		netErr = err
	})

	if err := collector.Visit(rawURL); err != nil && netErr == nil && resp.StatusCode == 0 {
		netErr = err
	}
	collector.Wait()
	resp.Duration = time.Since(start)

	if netErr != nil {
		return resp, fmt.Errorf("fetch %s: %w", rawURL, netErr)
	}
	c.logger.Debug("Fetched URL",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", resp.Duration))
	return resp, nil
}

// Head issues a HEAD request and returns the status code. Used by the
// subdomain reachability probe where the body is irrelevant.
func (c *Client) Head(ctx context.Context, rawURL string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	collector := c.base.Clone()
	var status int
	var netErr error
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			status = r.StatusCode
			return
		}
		netErr = err
	})
	if err := collector.Head(rawURL); err != nil && netErr == nil && status == 0 {
		netErr = err
	}
	collector.Wait()
	if netErr != nil {
		return 0, fmt.Errorf("head %s: %w", rawURL, netErr)
	}
	return status, nil
}

package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// commonSubdomainLabels are probed against every monitored domain on demand.
var commonSubdomainLabels = []string{
	"www", "blog", "shop", "store", "news", "docs",
	"support", "help", "api", "mail", "forum", "app",
	"dev", "status", "careers",
}

// ProbeSubdomains issues HEAD requests against well-known subdomain labels of
// the base URL's registrable host and returns the reachable ones. A probe
// counts as reachable on any status below 400; transport errors are skipped.
func (c *Crawler) ProbeSubdomains(ctx context.Context, baseURL string) ([]string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host == "" {
		return nil, fmt.Errorf("base url has no host: %s", baseURL)
	}
	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "https"
	}

	var found []string
	for _, label := range commonSubdomainLabels {
		candidate := fmt.Sprintf("%s://%s.%s/", scheme, label, host)
		if err := c.fetcher.Delay(ctx); err != nil {
			return found, err
		}
		status, err := c.fetcher.Head(ctx, candidate)
		if err != nil {
			continue
		}
		if status < 400 {
			found = append(found, candidate)
		}
	}
	return found, nil
}

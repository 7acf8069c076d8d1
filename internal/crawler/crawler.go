// Package crawler drives the change-detection pipeline across one domain's
// reachable page graph with a bounded breadth-first traversal.
package crawler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/extract"
	"github.com/JakeFAU/sitewatch/internal/monitor"
	"github.com/JakeFAU/sitewatch/internal/pipeline"
	"github.com/JakeFAU/sitewatch/internal/progress"
	"github.com/JakeFAU/sitewatch/internal/store"
)

// frontierEntry is one pending BFS step.
type frontierEntry struct {
	url   string
	depth int
}

// Crawler owns the traversal state machine; per-URL work is delegated to the
// pipeline and file downloads to the archive.
type Crawler struct {
	store   *store.Store
	pipe    *pipeline.Pipeline
	fetcher monitor.Fetcher
	archive *pipeline.Archive
	clock   monitor.Clock
	sink    progress.Sink
	logger  *zap.Logger
}

// New returns a Crawler over the given collaborators. A nil sink disables
// progress reporting.
func New(st *store.Store, pipe *pipeline.Pipeline, fetcher monitor.Fetcher, archive *pipeline.Archive, clock monitor.Clock, sink progress.Sink, logger *zap.Logger) *Crawler {
	return &Crawler{
		store:   st,
		pipe:    pipe,
		fetcher: fetcher,
		archive: archive,
		clock:   clock,
		sink:    sink,
		logger:  logger,
	}
}

// Crawl walks the domain starting at its base URL. The frontier is FIFO so
// change records reflect discovery order; the visited ceiling bounds total
// work even on cyclic link graphs. Per-URL failures are tallied and never
// abort the loop.
func (c *Crawler) Crawl(ctx context.Context, domain monitor.Domain, runID string) monitor.CrawlStats {
	stats := monitor.CrawlStats{}

	start, err := monitor.NormalizeURL(domain.URL)
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("normalize base url: %v", err))
		stats.PagesError++
		return stats
	}

	frontier := []frontierEntry{{url: start, depth: 0}}
	queued := map[string]struct{}{start: {}}
	visited := make(map[string]struct{})

	for len(frontier) > 0 && len(visited) < domain.MaxPages {
		entry := frontier[0]
		frontier = frontier[1:]
		if _, seen := visited[entry.url]; seen {
			continue
		}
		visited[entry.url] = struct{}{}
		stats.URLs = append(stats.URLs, entry.url)

		if monitor.IsFileURL(entry.url) {
			c.downloadFile(ctx, domain, entry.url, &stats)
			c.report(ctx, progress.Event{
				Stage:    progress.StageFile,
				DomainID: domain.ID,
				RunID:    runID,
				URL:      entry.url,
				Depth:    entry.depth,
				Visited:  len(visited),
			})
			continue
		}

		res := c.pipe.Process(ctx, domain.ID, runID, entry.url)
		switch res.Status {
		case pipeline.StatusNew:
			stats.PagesCrawled++
			stats.PagesNew++
		case pipeline.StatusModified:
			stats.PagesCrawled++
			stats.PagesModified++
		case pipeline.StatusUnchanged:
			stats.PagesCrawled++
			stats.PagesUnchanged++
		default:
			stats.PagesError++
			msg := res.Error
			if msg == "" {
				msg = string(res.Status)
			}
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %s", entry.url, msg))
		}
		c.report(ctx, progress.Event{
			Stage:    progress.StagePage,
			DomainID: domain.ID,
			RunID:    runID,
			URL:      entry.url,
			Depth:    entry.depth,
			Visited:  len(visited),
			Status:   string(res.Status),
		})

		if entry.depth >= domain.CrawlDepth || res.HTMLSnapshot == "" {
			continue
		}
		html, ok := c.archive.ReadSnapshot(res.HTMLSnapshot)
		if !ok {
			continue
		}
		links, err := extract.DiscoverLinks(html, entry.url)
		if err != nil {
			c.logger.Warn("Failed to extract links", zap.String("url", entry.url), zap.Error(err))
			continue
		}
		for _, link := range links {
			if _, seen := visited[link]; seen {
				continue
			}
			if _, pending := queued[link]; pending {
				continue
			}
			queued[link] = struct{}{}
			frontier = append(frontier, frontierEntry{url: link, depth: entry.depth + 1})
		}
	}

	c.logger.Info("Crawl finished",
		zap.String("domain_id", domain.ID),
		zap.String("base_url", domain.URL),
		zap.Int("pages_crawled", stats.PagesCrawled),
		zap.Int("pages_new", stats.PagesNew),
		zap.Int("pages_modified", stats.PagesModified),
		zap.Int("pages_error", stats.PagesError),
		zap.Int("files_downloaded", stats.FilesDownloaded),
	)
	return stats
}

// downloadFile stores a non-HTML resource in the attachment directory and
// records a FileRecord. Files are never expanded for links.
func (c *Crawler) downloadFile(ctx context.Context, domain monitor.Domain, rawURL string, stats *monitor.CrawlStats) {
	if err := c.fetcher.Delay(ctx); err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", rawURL, err))
		return
	}
	resp, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		stats.PagesError++
		stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", rawURL, err))
		return
	}
	if resp.StatusCode != 200 {
		stats.PagesError++
		stats.Errors = append(stats.Errors, fmt.Sprintf("%s: http status %d", rawURL, resp.StatusCode))
		return
	}

	ext := monitor.FileExtension(rawURL)
	ts := c.clock.Now().Format(pipeline.TimestampFormat)
	path, err := c.archive.WriteAttachment(monitor.HostDir(rawURL), ts, ext, resp.Body)
	if err != nil {
		stats.PagesError++
		stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", rawURL, err))
		return
	}
	if _, err := c.store.AddFile(domain.ID, rawURL, path, ext, int64(len(resp.Body))); err != nil {
		c.logger.Warn("Failed to record downloaded file", zap.String("url", rawURL), zap.Error(err))
	}
	stats.FilesDownloaded++
}

func (c *Crawler) report(ctx context.Context, evt progress.Event) {
	if c.sink == nil {
		return
	}
	evt.TS = c.clock.Now().UTC()
	if err := c.sink.Report(ctx, evt); err != nil {
		c.logger.Warn("Progress sink error", zap.Error(err))
	}
}

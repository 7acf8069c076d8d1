// Package pipeline implements the per-URL unit of work: fetch, extract,
// fingerprint, snapshot, compare against the stored page and record a change.
package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/domdiff"
	"github.com/JakeFAU/sitewatch/internal/extract"
	"github.com/JakeFAU/sitewatch/internal/monitor"
	"github.com/JakeFAU/sitewatch/internal/store"
	"github.com/JakeFAU/sitewatch/internal/textdiff"
)

// Status classifies the outcome of processing one URL.
type Status string

// Pipeline outcome values consumed by the crawler's statistics.
const (
	StatusNew       Status = "new"
	StatusModified  Status = "modified"
	StatusUnchanged Status = "unchanged"
	StatusBlocked   Status = "blocked"
	StatusError     Status = "error"
	// StatusFetched marks a standalone probe that skipped persistence.
	StatusFetched Status = "fetched"
)

// Result is the pipeline outcome for one URL. Error paths populate Error and
// leave Page/Change nil; the pipeline never returns a Go error to its caller.
type Result struct {
	URL          string
	Status       Status
	StatusCode   int
	Title        string
	Links        monitor.LinkClassification
	Page         *monitor.Page
	Change       *monitor.Change
	HTMLSnapshot string
	Error        string
}

// Pipeline wires the fetch client, extractor, differs, archive and store into
// the change-detection unit of work.
type Pipeline struct {
	store   *store.Store
	fetcher monitor.Fetcher
	hasher  monitor.Hasher
	clock   monitor.Clock
	archive *Archive
	logger  *zap.Logger
}

// New returns a Pipeline over the given collaborators.
func New(st *store.Store, fetcher monitor.Fetcher, hasher monitor.Hasher, clock monitor.Clock, archive *Archive, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:   st,
		fetcher: fetcher,
		hasher:  hasher,
		clock:   clock,
		archive: archive,
		logger:  logger,
	}
}

// Process runs the full unit of work for rawURL. With an empty domainID the
// call is a standalone probe: content is fetched and parsed but nothing is
// persisted. With an empty runID the page record is maintained but no change
// history is written. All failures resolve into Result.Status; the crawler
// keeps advancing its frontier regardless of what happens here.
func (p *Pipeline) Process(ctx context.Context, domainID, runID, rawURL string) Result {
	res := Result{URL: rawURL, Status: StatusError}

	if !p.fetcher.Allowed(ctx, rawURL) {
		res.Status = StatusBlocked
		p.logger.Info("URL blocked by robots policy", zap.String("url", rawURL))
		return res
	}
	if err := p.fetcher.Delay(ctx); err != nil {
		res.Error = err.Error()
		return res
	}

	fetched, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.StatusCode = fetched.StatusCode
	if fetched.StatusCode != http.StatusOK {
		res.Error = fmt.Sprintf("http status %d", fetched.StatusCode)
		return res
	}

	content, err := extract.Parse(fetched.Body)
	if err != nil {
		res.Error = fmt.Sprintf("parse content: %v", err)
		return res
	}
	res.Title = content.Title

	links, err := extract.ClassifyLinks(fetched.Body, rawURL)
	if err != nil {
		res.Error = fmt.Sprintf("classify links: %v", err)
		return res
	}
	res.Links = links

	fingerprint, err := p.hasher.Hash([]byte(content.Text))
	if err != nil {
		res.Error = fmt.Sprintf("fingerprint content: %v", err)
		return res
	}

	if domainID == "" {
		res.Status = StatusFetched
		return res
	}

	host := monitor.HostDir(rawURL)
	ts := p.clock.Now().Format(TimestampFormat)
	txtPath, htmlPath, err := p.archive.WriteSnapshots(host, ts, []byte(content.Text), fetched.Body)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.HTMLSnapshot = htmlPath

	prev, existed := p.store.GetPageByURL(domainID, rawURL)
	page, err := p.store.UpsertPage(domainID, rawURL, store.PageUpdate{
		Title:        content.Title,
		ContentHash:  fingerprint,
		StatusCode:   fetched.StatusCode,
		Links:        links,
		TextSnapshot: txtPath,
		HTMLSnapshot: htmlPath,
	})
	if err != nil {
		res.Error = fmt.Sprintf("upsert page: %v", err)
		return res
	}
	res.Page = &page

	switch {
	case !existed:
		res.Status = StatusNew
		if runID != "" {
			change, cerr := p.store.AddChange(store.ChangeInput{
				PageID:      page.ID,
				RunID:       runID,
				Type:        monitor.ChangeTypeNew,
				NewSnapshot: txtPath,
			})
			if cerr != nil {
				p.logger.Warn("Failed to record new-page change", zap.String("url", rawURL), zap.Error(cerr))
			} else {
				res.Change = &change
			}
		}
	case prev.ContentHash != fingerprint:
		res.Status = StatusModified
		diffPath, domPath, similarity := p.diffArtifacts(prev, content.Text, fetched.Body, host, page.ID, ts)
		if runID != "" {
			change, cerr := p.store.AddChange(store.ChangeInput{
				PageID:      page.ID,
				RunID:       runID,
				Type:        monitor.ChangeTypeModified,
				OldSnapshot: prev.TextSnapshot,
				NewSnapshot: txtPath,
				DiffPath:    diffPath,
				DOMDiffPath: domPath,
				Similarity:  similarity,
			})
			if cerr != nil {
				p.logger.Warn("Failed to record modified-page change", zap.String("url", rawURL), zap.Error(cerr))
			} else {
				res.Change = &change
			}
		}
	default:
		res.Status = StatusUnchanged
	}

	return res
}

// diffArtifacts compares the new content against the page's prior snapshots
// and writes the text and DOM diff alert artifacts. Missing baselines or
// artifact write failures degrade to empty paths rather than failing the
// pipeline run.
func (p *Pipeline) diffArtifacts(prev monitor.Page, newText string, newHTML []byte, host, pageID, ts string) (string, string, *float64) {
	var diffPath, domPath string
	var similarity *float64

	if oldText, ok := p.archive.ReadSnapshot(prev.TextSnapshot); ok {
		score := textdiff.Similarity(string(oldText), newText)
		similarity = &score

		unified, err := textdiff.Unified(string(oldText), newText)
		if err != nil {
			p.logger.Warn("Failed to build unified diff", zap.String("page_id", pageID), zap.Error(err))
		} else if unified != "" {
			diffPath, err = p.archive.WriteTextDiff(host, pageID, ts, unified)
			if err != nil {
				p.logger.Warn("Failed to write text diff artifact", zap.String("page_id", pageID), zap.Error(err))
				diffPath = ""
			}
		}
	}

	if oldHTML, ok := p.archive.ReadSnapshot(prev.HTMLSnapshot); ok {
		report, err := domdiff.Compare(oldHTML, newHTML)
		if err != nil {
			p.logger.Warn("Failed to compute dom diff", zap.String("page_id", pageID), zap.Error(err))
		} else if !report.Empty() {
			domPath, err = p.archive.WriteDOMDiff(host, pageID, ts, domdiff.RenderHTML(report))
			if err != nil {
				p.logger.Warn("Failed to write dom diff artifact", zap.String("page_id", pageID), zap.Error(err))
				domPath = ""
			}
		}
	}

	return diffPath, domPath, similarity
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/api"
	"github.com/JakeFAU/sitewatch/internal/config"
	"github.com/JakeFAU/sitewatch/internal/crawler"
	"github.com/JakeFAU/sitewatch/internal/hash/sha256"
	"github.com/JakeFAU/sitewatch/internal/id/uuid"
	"github.com/JakeFAU/sitewatch/internal/monitor"
	"github.com/JakeFAU/sitewatch/internal/notify"
	"github.com/JakeFAU/sitewatch/internal/pipeline"
	"github.com/JakeFAU/sitewatch/internal/scheduler"
	"github.com/JakeFAU/sitewatch/internal/store"
)

type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]monitor.FetchResponse
}

func (f *stubFetcher) Allowed(context.Context, string) bool { return true }

func (f *stubFetcher) Delay(ctx context.Context) error { return ctx.Err() }

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (monitor.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp, ok := f.responses[rawURL]
	if !ok {
		return monitor.FetchResponse{URL: rawURL, StatusCode: http.StatusNotFound}, nil
	}
	resp.URL = rawURL
	return resp, nil
}

func (f *stubFetcher) Head(_ context.Context, rawURL string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if resp, ok := f.responses[rawURL]; ok {
		return resp.StatusCode, nil
	}
	return http.StatusNotFound, nil
}

type fixture struct {
	server    *api.Server
	store     *store.Store
	scheduler *scheduler.Scheduler
	fetcher   *stubFetcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Crawler: config.CrawlerConfig{MaxDepthDefault: 2, MaxPagesDefault: 100},
	}
	st, err := store.New(store.Config{DataDir: filepath.Join(root, "data"), RecentChanges: 50},
		uuid.New(), clockFunc(time.Now), zap.NewNop())
	require.NoError(t, err)

	fetcher := &stubFetcher{responses: map[string]monitor.FetchResponse{}}
	archive := pipeline.NewArchive(
		filepath.Join(root, "snapshots"),
		filepath.Join(root, "alerts"),
		filepath.Join(root, "attachments"),
	)
	pipe := pipeline.New(st, fetcher, sha256.New(), clockFunc(time.Now), archive, zap.NewNop())
	cr := crawler.New(st, pipe, fetcher, archive, clockFunc(time.Now), nil, zap.NewNop())
	sched := scheduler.New(st, cr, notify.NewLog(nil), clockFunc(time.Now), nil, "", zap.NewNop())
	srv := api.NewServer(st, sched, cr, cfg, zap.NewNop())
	return &fixture{server: srv, store: st, scheduler: sched, fetcher: fetcher}
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createDomain(t *testing.T) monitor.Domain {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/domains/", map[string]any{
		"url":              "https://example.com",
		"email":            "owner@example.com",
		"interval_minutes": 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Domain monitor.Domain `json:"domain"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Domain
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/metrics", nil).Code)
}

func TestCreateDomainSchedulesJob(t *testing.T) {
	f := newFixture(t)
	d := f.createDomain(t)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, 30, d.Interval)
	assert.Equal(t, 2, d.CrawlDepth)
	assert.Equal(t, 100, d.MaxPages)
	assert.True(t, f.scheduler.Scheduled(d.ID))
}

func TestCreateDomainRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/domains/", map[string]any{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDomainNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/domains/nope/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateDomainReschedules(t *testing.T) {
	f := newFixture(t)
	d := f.createDomain(t)

	rec := f.do(t, http.MethodPatch, "/v1/domains/"+d.ID+"/", map[string]any{"interval_minutes": 90})
	require.Equal(t, http.StatusOK, rec.Code)

	got, ok := f.store.GetDomain(d.ID)
	require.True(t, ok)
	assert.Equal(t, 90, got.Interval)
	assert.True(t, f.scheduler.Scheduled(d.ID))
}

func TestUpdateDomainRejectsBadCrawlBounds(t *testing.T) {
	f := newFixture(t)
	d := f.createDomain(t)

	// A zero page budget would make the next crawl see nothing and mark
	// every page removed; both handler and store must refuse it.
	rec := f.do(t, http.MethodPatch, "/v1/domains/"+d.ID+"/", map[string]any{"max_pages": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/v1/domains/"+d.ID+"/", map[string]any{"crawl_depth": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	got, ok := f.store.GetDomain(d.ID)
	require.True(t, ok)
	assert.Equal(t, 100, got.MaxPages)
	assert.Equal(t, 2, got.CrawlDepth)
}

func TestToggleDomain(t *testing.T) {
	f := newFixture(t)
	d := f.createDomain(t)

	rec := f.do(t, http.MethodPost, "/v1/domains/"+d.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got, _ := f.store.GetDomain(d.ID)
	assert.False(t, got.IsActive)
	assert.False(t, f.scheduler.Scheduled(d.ID))

	rec = f.do(t, http.MethodPost, "/v1/domains/"+d.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got, _ = f.store.GetDomain(d.ID)
	assert.True(t, got.IsActive)
	assert.True(t, f.scheduler.Scheduled(d.ID))
}

func TestDeleteDomain(t *testing.T) {
	f := newFixture(t)
	d := f.createDomain(t)

	rec := f.do(t, http.MethodDelete, "/v1/domains/"+d.ID+"/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.False(t, f.scheduler.Scheduled(d.ID))
	rec = f.do(t, http.MethodGet, "/v1/domains/"+d.ID+"/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScrapeNow(t *testing.T) {
	f := newFixture(t)
	d := f.createDomain(t)

	rec := f.do(t, http.MethodPost, "/v1/domains/"+d.ID+"/scrape", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/domains/missing/scrape", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProbeSubdomainsEndpoint(t *testing.T) {
	f := newFixture(t)
	d := f.createDomain(t)
	f.fetcher.mu.Lock()
	f.fetcher.responses["https://blog.example.com/"] = monitor.FetchResponse{StatusCode: 200}
	f.fetcher.mu.Unlock()

	rec := f.do(t, http.MethodGet, "/v1/domains/"+d.ID+"/subdomains", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Subdomains []string `json:"subdomains"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Subdomains, "https://blog.example.com/")
}

func TestLinkStatsEndpoint(t *testing.T) {
	f := newFixture(t)
	d := f.createDomain(t)

	_, err := f.store.UpsertPage(d.ID, "https://example.com/", store.PageUpdate{
		ContentHash: "h",
		Links: monitor.LinkClassification{
			Internal: []monitor.Link{{URL: "https://example.com/b"}},
			External: []monitor.Link{{URL: "https://other.org/x", Host: "other.org"}},
		},
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/v1/domains/"+d.ID+"/links", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Links monitor.DomainLinkStats `json:"links"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Links.InternalLinks)
	assert.Equal(t, 1, resp.Links.ExternalLinks)
	require.Len(t, resp.Links.TopExternalHosts, 1)
	assert.Equal(t, "other.org", resp.Links.TopExternalHosts[0].Host)

	rec = f.do(t, http.MethodGet, "/v1/domains/missing/links", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentChangesRejectsBadLimit(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/changes/recent?limit=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsAndMaintenance(t *testing.T) {
	f := newFixture(t)
	f.createDomain(t)

	rec := f.do(t, http.MethodGet, "/v1/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "total_domains")

	rec = f.do(t, http.MethodPost, "/v1/maintenance/fix", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "titles_fixed")
}

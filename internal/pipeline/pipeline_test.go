package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/hash/sha256"
	"github.com/JakeFAU/sitewatch/internal/id/uuid"
	"github.com/JakeFAU/sitewatch/internal/monitor"
	"github.com/JakeFAU/sitewatch/internal/pipeline"
	"github.com/JakeFAU/sitewatch/internal/store"
)

const (
	pageV1 = `<html><head><title>Home</title></head><body><div id="main"><p>Welcome to the example homepage, fresh content every day.</p></div></body></html>`
	pageV2 = `<html><head><title>Home</title></head><body><div id="main"><p>Welcome to the example homepage, now with updated announcements.</p></div></body></html>`
)

type stubFetcher struct {
	responses map[string]monitor.FetchResponse
	errs      map[string]error
	blocked   map[string]bool
}

func (f *stubFetcher) Allowed(_ context.Context, rawURL string) bool {
	return !f.blocked[rawURL]
}

func (f *stubFetcher) Delay(ctx context.Context) error { return ctx.Err() }

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (monitor.FetchResponse, error) {
	if err, ok := f.errs[rawURL]; ok {
		return monitor.FetchResponse{URL: rawURL}, err
	}
	resp, ok := f.responses[rawURL]
	if !ok {
		return monitor.FetchResponse{URL: rawURL, StatusCode: http.StatusNotFound}, nil
	}
	resp.URL = rawURL
	return resp, nil
}

func (f *stubFetcher) Head(_ context.Context, rawURL string) (int, error) {
	if resp, ok := f.responses[rawURL]; ok {
		return resp.StatusCode, nil
	}
	return http.StatusNotFound, nil
}

// stepClock advances one second per observation so snapshot filenames never
// collide within a test.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	pipeline *pipeline.Pipeline
	store    *store.Store
	fetcher  *stubFetcher
	root     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	st, err := store.New(store.Config{DataDir: filepath.Join(root, "data"), RecentChanges: 50},
		uuid.New(), &stepClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}, zap.NewNop())
	require.NoError(t, err)

	fetcher := &stubFetcher{
		responses: map[string]monitor.FetchResponse{},
		errs:      map[string]error{},
		blocked:   map[string]bool{},
	}
	archive := pipeline.NewArchive(
		filepath.Join(root, "snapshots"),
		filepath.Join(root, "alerts"),
		filepath.Join(root, "attachments"),
	)
	p := pipeline.New(st, fetcher, sha256.New(),
		&stepClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}, archive, zap.NewNop())
	return &fixture{pipeline: p, store: st, fetcher: fetcher, root: root}
}

func (f *fixture) addDomain(t *testing.T) monitor.Domain {
	t.Helper()
	d, err := f.store.AddDomain("https://example.com", "alerts@example.com", 30, 2, 100)
	require.NoError(t, err)
	return d
}

func (f *fixture) addRun(t *testing.T, domainID string) monitor.ScrapeRun {
	t.Helper()
	run, err := f.store.CreateRun(domainID)
	require.NoError(t, err)
	return run
}

func TestProcessNewPage(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t)
	run := f.addRun(t, d.ID)
	f.fetcher.responses["https://example.com/about"] = monitor.FetchResponse{StatusCode: 200, Body: []byte(pageV1)}

	res := f.pipeline.Process(context.Background(), d.ID, run.ID, "https://example.com/about")

	assert.Equal(t, pipeline.StatusNew, res.Status)
	assert.Equal(t, "Home", res.Title)
	require.NotNil(t, res.Page)
	require.NotNil(t, res.Change)
	assert.Equal(t, monitor.ChangeTypeNew, res.Change.ChangeType)

	stored, ok := f.store.GetPageByURL(d.ID, "https://example.com/about")
	require.True(t, ok)
	assert.NotEmpty(t, stored.ContentHash)
	assert.FileExists(t, stored.TextSnapshot)
	assert.FileExists(t, stored.HTMLSnapshot)
}

func TestProcessUnchangedPage(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t)
	run := f.addRun(t, d.ID)
	f.fetcher.responses["https://example.com/"] = monitor.FetchResponse{StatusCode: 200, Body: []byte(pageV1)}

	first := f.pipeline.Process(context.Background(), d.ID, run.ID, "https://example.com/")
	require.Equal(t, pipeline.StatusNew, first.Status)

	second := f.pipeline.Process(context.Background(), d.ID, run.ID, "https://example.com/")
	assert.Equal(t, pipeline.StatusUnchanged, second.Status)
	assert.Nil(t, second.Change)
	require.NotNil(t, second.Page)
	assert.True(t, second.Page.LastChecked.After(first.Page.LastChecked))
	assert.Len(t, f.store.RunChanges(run.ID), 1)
}

func TestProcessModifiedPage(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t)
	run := f.addRun(t, d.ID)
	url := "https://example.com/news"
	f.fetcher.responses[url] = monitor.FetchResponse{StatusCode: 200, Body: []byte(pageV1)}

	first := f.pipeline.Process(context.Background(), d.ID, run.ID, url)
	require.Equal(t, pipeline.StatusNew, first.Status)

	f.fetcher.responses[url] = monitor.FetchResponse{StatusCode: 200, Body: []byte(pageV2)}
	second := f.pipeline.Process(context.Background(), d.ID, run.ID, url)

	assert.Equal(t, pipeline.StatusModified, second.Status)
	require.NotNil(t, second.Change)
	assert.Equal(t, monitor.ChangeTypeModified, second.Change.ChangeType)
	require.NotNil(t, second.Change.Similarity)
	assert.Greater(t, *second.Change.Similarity, 0.0)
	assert.Less(t, *second.Change.Similarity, 1.0)
	assert.Equal(t, first.Page.TextSnapshot, second.Change.OldSnapshot)
	assert.FileExists(t, second.Change.DiffPath)
	assert.FileExists(t, second.Change.DOMDiffPath)

	domHTML, err := os.ReadFile(second.Change.DOMDiffPath)
	require.NoError(t, err)
	assert.Contains(t, string(domHTML), "Modified")
}

func TestProcessBlockedByRobots(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t)
	f.fetcher.blocked["https://example.com/private"] = true

	res := f.pipeline.Process(context.Background(), d.ID, "", "https://example.com/private")

	assert.Equal(t, pipeline.StatusBlocked, res.Status)
	_, ok := f.store.GetPageByURL(d.ID, "https://example.com/private")
	assert.False(t, ok)
}

func TestProcessFetchErrorIsContained(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t)
	f.fetcher.errs["https://example.com/down"] = errors.New("connection refused")

	res := f.pipeline.Process(context.Background(), d.ID, "", "https://example.com/down")

	assert.Equal(t, pipeline.StatusError, res.Status)
	assert.Contains(t, res.Error, "connection refused")
}

func TestProcessNon200IsError(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t)
	f.fetcher.responses["https://example.com/gone"] = monitor.FetchResponse{StatusCode: 404}

	res := f.pipeline.Process(context.Background(), d.ID, "", "https://example.com/gone")

	assert.Equal(t, pipeline.StatusError, res.Status)
	assert.Equal(t, 404, res.StatusCode)
}

func TestProcessStandaloneProbeSkipsPersistence(t *testing.T) {
	f := newFixture(t)
	f.fetcher.responses["https://example.com/probe"] = monitor.FetchResponse{StatusCode: 200, Body: []byte(pageV1)}

	res := f.pipeline.Process(context.Background(), "", "", "https://example.com/probe")

	assert.Equal(t, pipeline.StatusFetched, res.Status)
	assert.Equal(t, "Home", res.Title)
	assert.Nil(t, res.Page)
	assert.NoDirExists(t, filepath.Join(f.root, "snapshots"))
}

func TestProcessWithoutRunSkipsHistory(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t)
	f.fetcher.responses["https://example.com/adhoc"] = monitor.FetchResponse{StatusCode: 200, Body: []byte(pageV1)}

	res := f.pipeline.Process(context.Background(), d.ID, "", "https://example.com/adhoc")

	assert.Equal(t, pipeline.StatusNew, res.Status)
	assert.Nil(t, res.Change)
	_, ok := f.store.GetPageByURL(d.ID, "https://example.com/adhoc")
	assert.True(t, ok)
	assert.Empty(t, f.store.RecentChanges(0))
}

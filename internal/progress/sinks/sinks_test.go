package sinks_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/clock/system"
	"github.com/JakeFAU/sitewatch/internal/id/uuid"
	"github.com/JakeFAU/sitewatch/internal/progress"
	"github.com/JakeFAU/sitewatch/internal/progress/sinks"
	"github.com/JakeFAU/sitewatch/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(store.Config{DataDir: filepath.Join(t.TempDir(), "data"), RecentChanges: 10},
		uuid.New(), system.New(), zap.NewNop())
	require.NoError(t, err)
	return st
}

func TestStoreSinkUpdatesRun(t *testing.T) {
	st := newStore(t)
	d, err := st.AddDomain("https://example.com", "a@example.com", 30, 2, 100)
	require.NoError(t, err)
	run, err := st.CreateRun(d.ID)
	require.NoError(t, err)

	sink := sinks.NewStoreSink(st)
	err = sink.Report(context.Background(), progress.Event{
		TS:       time.Now().UTC(),
		Stage:    progress.StagePage,
		DomainID: d.ID,
		RunID:    run.ID,
		URL:      "https://example.com/about",
		Visited:  3,
		Status:   "new",
	})
	require.NoError(t, err)

	got, ok := st.GetRun(run.ID)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/about", got.CurrentURL)
	assert.Equal(t, 3, got.PagesCrawled)
}

func TestStoreSinkIgnoresLifecycleStages(t *testing.T) {
	st := newStore(t)
	sink := sinks.NewStoreSink(st)
	err := sink.Report(context.Background(), progress.Event{Stage: progress.StageRunStart, RunID: "missing"})
	require.NoError(t, err)
}

func TestStoreSinkUnknownRun(t *testing.T) {
	st := newStore(t)
	sink := sinks.NewStoreSink(st)
	err := sink.Report(context.Background(), progress.Event{Stage: progress.StagePage, RunID: "missing", URL: "https://example.com"})
	require.Error(t, err)
}

func TestPrometheusSinkCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := sinks.NewPrometheusSink(reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Report(ctx, progress.Event{Stage: progress.StageRunStart}))
	require.NoError(t, sink.Report(ctx, progress.Event{Stage: progress.StagePage, Status: "new"}))
	require.NoError(t, sink.Report(ctx, progress.Event{Stage: progress.StagePage, Status: "new"}))
	require.NoError(t, sink.Report(ctx, progress.Event{Stage: progress.StageFile}))
	require.NoError(t, sink.Report(ctx, progress.Event{Stage: progress.StageRunDone, Status: "completed"}))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	assert.Equal(t, float64(2), metricValue(t, families, "sitewatch_pages_total"))
	assert.Equal(t, float64(1), metricValue(t, families, "sitewatch_files_downloaded_total"))
	assert.Equal(t, float64(0), metricValue(t, families, "sitewatch_runs_running"))
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string) float64 {
	t.Helper()
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
		return total
	}
	t.Fatalf("metric family %s not found", name)
	return 0
}

func TestLogSinkNilLogger(t *testing.T) {
	sink := sinks.NewLogSink(nil)
	require.NoError(t, sink.Report(context.Background(), progress.Event{Stage: progress.StagePage}))
}

func TestMultiFansOut(t *testing.T) {
	st := newStore(t)
	d, err := st.AddDomain("https://example.com", "a@example.com", 30, 2, 100)
	require.NoError(t, err)
	run, err := st.CreateRun(d.ID)
	require.NoError(t, err)

	multi := progress.Multi{sinks.NewLogSink(zap.NewNop()), sinks.NewStoreSink(st)}
	err = multi.Report(context.Background(), progress.Event{
		Stage: progress.StagePage, RunID: run.ID, URL: "https://example.com/x", Visited: 1,
	})
	require.NoError(t, err)

	got, ok := st.GetRun(run.ID)
	require.True(t, ok)
	assert.Equal(t, 1, got.PagesCrawled)
}

package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/sitewatch/internal/monitor"
	"github.com/JakeFAU/sitewatch/internal/notify"
)

func newObserved() (*notify.LogNotifier, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return notify.NewLog(zap.New(core)), logs
}

func TestAlertLogsEveryChange(t *testing.T) {
	n, logs := newObserved()
	changes := []monitor.ChangeDetail{
		{Change: monitor.Change{ChangeType: monitor.ChangeTypeNew}, PageURL: "https://a.com/x", PageTitle: "X"},
		{Change: monitor.Change{ChangeType: monitor.ChangeTypeModified}, PageURL: "https://a.com/y", PageTitle: "Y"},
	}

	err := n.Alert(context.Background(), "ops@a.com", "2 changes on a.com", changes, "https://a.com")
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "Change alert", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["total"])
}

func TestCompletionLogsRunSummary(t *testing.T) {
	n, logs := newObserved()
	err := n.Completion(context.Background(), "ops@a.com", "https://a.com", monitor.ScrapeRun{
		ID: "run-1", Status: monitor.RunStatusCompleted, PagesCrawled: 7,
	})
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(7), entries[0].ContextMap()["pages_crawled"])
}

func TestDigestLogsPerDomain(t *testing.T) {
	n, logs := newObserved()
	err := n.Digest(context.Background(), "ops@a.com", "Daily digest", monitor.DigestReport{
		Date:         "2026-08-30",
		TotalChanges: 4,
		Domains: []monitor.DomainDigest{
			{DomainURL: "https://a.com", New: 1, Modified: 2},
			{DomainURL: "https://b.com", Removed: 1},
		},
	})
	require.NoError(t, err)
	assert.Len(t, logs.All(), 3)
}

func TestNilLoggerIsSafe(t *testing.T) {
	n := notify.NewLog(nil)
	require.NoError(t, n.Completion(context.Background(), "", "", monitor.ScrapeRun{}))
}

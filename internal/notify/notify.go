// Package notify provides Notifier implementations. The core hands over
// structured change data; rendering and delivery transport live here.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// LogNotifier writes notifications to the structured log. It stands in for a
// mail or webhook transport in development and keeps the dispatch path
// exercised end to end.
type LogNotifier struct {
	logger *zap.Logger
}

var _ monitor.Notifier = (*LogNotifier)(nil)

// NewLog returns a LogNotifier over the given logger.
func NewLog(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Alert logs one change batch for a domain.
func (n *LogNotifier) Alert(_ context.Context, recipient, subject string, changes []monitor.ChangeDetail, domainURL string) error {
	counts := map[monitor.ChangeType]int{}
	for _, c := range changes {
		counts[c.ChangeType]++
	}
	n.logger.Info("Change alert",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("domain_url", domainURL),
		zap.Int("total", len(changes)),
		zap.Int("new", counts[monitor.ChangeTypeNew]),
		zap.Int("modified", counts[monitor.ChangeTypeModified]),
		zap.Int("removed", counts[monitor.ChangeTypeRemoved]),
	)
	for _, c := range changes {
		n.logger.Info("Changed page",
			zap.String("domain_url", domainURL),
			zap.String("page_url", c.PageURL),
			zap.String("page_title", c.PageTitle),
			zap.String("change_type", string(c.ChangeType)),
			zap.String("diff_path", c.DiffPath),
		)
	}
	return nil
}

// Completion logs a no-change run summary.
func (n *LogNotifier) Completion(_ context.Context, recipient, domainURL string, run monitor.ScrapeRun) error {
	n.logger.Info("Scrape completed without changes",
		zap.String("recipient", recipient),
		zap.String("domain_url", domainURL),
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("pages_crawled", run.PagesCrawled),
	)
	return nil
}

// Digest logs the daily cross-domain change digest.
func (n *LogNotifier) Digest(_ context.Context, recipient, subject string, report monitor.DigestReport) error {
	n.logger.Info("Daily digest",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("date", report.Date),
		zap.Int("total_changes", report.TotalChanges),
		zap.Int("domains", len(report.Domains)),
	)
	for _, d := range report.Domains {
		n.logger.Info("Digest domain",
			zap.String("domain_url", d.DomainURL),
			zap.Int("new", d.New),
			zap.Int("modified", d.Modified),
			zap.Int("removed", d.Removed),
		)
	}
	return nil
}

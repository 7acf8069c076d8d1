// Package scheduler turns domain configuration into executed crawls and a
// daily change digest using cron-backed recurring jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/crawler"
	"github.com/JakeFAU/sitewatch/internal/monitor"
	"github.com/JakeFAU/sitewatch/internal/progress"
	"github.com/JakeFAU/sitewatch/internal/store"
)

// Scheduler owns the active-job registry. Each domain has at most one
// recurring job; rescheduling replaces the previous entry so no domain ever
// runs on two execution streams.
type Scheduler struct {
	store    *store.Store
	crawler  *crawler.Crawler
	notifier monitor.Notifier
	clock    monitor.Clock
	sink     progress.Sink
	logger   *zap.Logger

	defaultRecipient string

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New returns a stopped Scheduler; call Start to begin firing jobs.
func New(st *store.Store, cr *crawler.Crawler, notifier monitor.Notifier, clock monitor.Clock, sink progress.Sink, defaultRecipient string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:            st,
		crawler:          cr,
		notifier:         notifier,
		clock:            clock,
		sink:             sink,
		logger:           logger,
		defaultRecipient: defaultRecipient,
		cron:             cron.New(),
		entries:          make(map[string]cron.EntryID),
	}
}

// Start registers the daily digest at digestHour local time, schedules every
// active domain, and starts the cron runner.
func (s *Scheduler) Start(digestHour int) error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("0 %d * * *", digestHour), func() {
		if err := s.RunDigest(context.Background()); err != nil {
			s.logger.Error("Digest job failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("register digest job: %w", err)
	}
	for _, d := range s.store.AllDomains() {
		if !d.IsActive {
			continue
		}
		if err := s.Schedule(d.ID, d.Interval); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts job firing and waits for in-flight jobs to finish or for ctx to
// expire. An unscheduled or stopped domain job that is mid-crawl is allowed
// to complete.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule registers a recurring crawl for the domain every interval minutes,
// replacing any existing job for that domain id.
func (s *Scheduler) Schedule(domainID string, interval int) error {
	if interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive, got %d", domainID, interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[domainID]; ok {
		s.cron.Remove(old)
	}
	id, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", interval), func() {
		if err := s.RunDomain(context.Background(), domainID); err != nil {
			s.logger.Error("Scheduled crawl failed",
				zap.String("domain_id", domainID), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", domainID, err)
	}
	s.entries[domainID] = id
	s.logger.Info("Domain scheduled",
		zap.String("domain_id", domainID), zap.Int("interval_minutes", interval))
	return nil
}

// Unschedule removes the domain's recurring job if one exists.
func (s *Scheduler) Unschedule(domainID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[domainID]; ok {
		s.cron.Remove(id)
		delete(s.entries, domainID)
		s.logger.Info("Domain unscheduled", zap.String("domain_id", domainID))
	}
}

// Scheduled reports whether the domain currently has a recurring job.
func (s *Scheduler) Scheduled(domainID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[domainID]
	return ok
}

// TriggerNow runs the domain crawl synchronously, bypassing the interval wait
// without disturbing the recurring schedule.
func (s *Scheduler) TriggerNow(ctx context.Context, domainID string) error {
	return s.RunDomain(ctx, domainID)
}

// RunDomain is the job body for one domain crawl: create a run, crawl, detect
// removed pages, finalize statistics and dispatch notifications. A missing or
// inactive domain is skipped. Panics are converted into a failed run so the
// scheduler keeps serving other jobs.
func (s *Scheduler) RunDomain(ctx context.Context, domainID string) (err error) {
	domain, ok := s.store.GetDomain(domainID)
	if !ok {
		s.logger.Warn("Skipping crawl for unknown domain", zap.String("domain_id", domainID))
		return nil
	}
	if !domain.IsActive {
		s.logger.Info("Skipping crawl for inactive domain", zap.String("domain_id", domainID))
		return nil
	}

	run, err := s.store.CreateRun(domainID)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	s.report(ctx, progress.Event{
		Stage: progress.StageRunStart, DomainID: domainID, RunID: run.ID, URL: domain.URL,
	})

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crawl %s: panic: %v", domain.URL, r)
			s.store.FinalizeRun(run.ID, monitor.RunStatusFailed, err.Error())
			s.report(ctx, progress.Event{
				Stage: progress.StageRunError, DomainID: domainID, RunID: run.ID, Note: err.Error(),
			})
		}
	}()

	stats := s.crawler.Crawl(ctx, domain, run.ID)

	removed := s.store.DetectRemovedPages(domainID, stats.URLs)
	for _, p := range removed {
		if _, cerr := s.store.AddChange(store.ChangeInput{
			PageID:      p.ID,
			RunID:       run.ID,
			Type:        monitor.ChangeTypeRemoved,
			OldSnapshot: p.TextSnapshot,
		}); cerr != nil {
			s.logger.Warn("Failed to record removed-page change",
				zap.String("page_id", p.ID), zap.Error(cerr))
		}
	}

	s.store.UpdateRun(run.ID, func(r *monitor.ScrapeRun) {
		r.PagesCrawled = stats.PagesCrawled
		r.PagesChanged = stats.PagesModified
		r.PagesNew = stats.PagesNew
		r.PagesRemoved = len(removed)
		r.FilesDownloaded = stats.FilesDownloaded
	})
	s.store.FinalizeRun(run.ID, monitor.RunStatusCompleted, "")
	s.store.TouchDomainScraped(domainID, s.clock.Now())

	s.notifyRun(ctx, domain, run.ID, stats, len(removed))

	s.report(ctx, progress.Event{
		Stage: progress.StageRunDone, DomainID: domainID, RunID: run.ID,
		Visited: stats.PagesCrawled, Status: string(monitor.RunStatusCompleted),
	})
	return nil
}

// notifyRun dispatches either a change alert or a completion notice and marks
// the alerted changes notified. Notification failures are logged, never
// propagated into the run outcome.
func (s *Scheduler) notifyRun(ctx context.Context, domain monitor.Domain, runID string, stats monitor.CrawlStats, removedCount int) {
	recipient := domain.Email
	if recipient == "" {
		recipient = s.defaultRecipient
	}

	total := stats.PagesNew + stats.PagesModified + removedCount
	if total == 0 {
		run, ok := s.store.GetRun(runID)
		if !ok {
			return
		}
		if err := s.notifier.Completion(ctx, recipient, domain.URL, run); err != nil {
			s.logger.Warn("Completion notification failed",
				zap.String("domain_id", domain.ID), zap.Error(err))
		}
		return
	}

	changes := s.store.RunChanges(runID)
	details := s.enrich(changes)
	subject := fmt.Sprintf("%d change(s) detected on %s", total, domain.URL)
	if err := s.notifier.Alert(ctx, recipient, subject, details, domain.URL); err != nil {
		s.logger.Warn("Alert notification failed",
			zap.String("domain_id", domain.ID), zap.Error(err))
		return
	}
	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		ids = append(ids, c.ID)
	}
	s.store.MarkChangesNotified(ids)
}

// enrich joins changes with their page's URL and title.
func (s *Scheduler) enrich(changes []monitor.Change) []monitor.ChangeDetail {
	details := make([]monitor.ChangeDetail, 0, len(changes))
	for _, c := range changes {
		d := monitor.ChangeDetail{Change: c}
		if page, ok := s.store.GetPage(c.PageID); ok {
			d.PageURL = page.URL
			d.PageTitle = page.Title
		}
		details = append(details, d)
	}
	return details
}

func (s *Scheduler) report(ctx context.Context, evt progress.Event) {
	if s.sink == nil {
		return
	}
	evt.TS = s.clock.Now().UTC()
	if err := s.sink.Report(ctx, evt); err != nil {
		s.logger.Warn("Progress sink error", zap.Error(err))
	}
}

package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// RunDigest aggregates the trailing 24 hours of changes across all domains,
// groups them per domain and dispatches one digest per distinct recipient.
func (s *Scheduler) RunDigest(ctx context.Context) error {
	now := s.clock.Now()
	cutoff := now.Add(-24 * time.Hour)
	changes := s.store.ChangesSince(cutoff)
	if len(changes) == 0 {
		s.logger.Info("No changes in digest window; skipping digest")
		return nil
	}

	byDomain := make(map[string][]monitor.ChangeDetail)
	for _, c := range changes {
		page, ok := s.store.GetPage(c.PageID)
		if !ok {
			continue
		}
		byDomain[page.DomainID] = append(byDomain[page.DomainID], monitor.ChangeDetail{
			Change:    c,
			PageURL:   page.URL,
			PageTitle: page.Title,
		})
	}

	byRecipient := make(map[string][]monitor.DomainDigest)
	for domainID, details := range byDomain {
		domain, ok := s.store.GetDomain(domainID)
		if !ok {
			continue
		}
		digest := monitor.DomainDigest{
			DomainURL: domain.URL,
			Email:     domain.Email,
			Changes:   details,
		}
		for _, d := range details {
			switch d.ChangeType {
			case monitor.ChangeTypeNew:
				digest.New++
			case monitor.ChangeTypeModified:
				digest.Modified++
			case monitor.ChangeTypeRemoved:
				digest.Removed++
			}
		}
		recipient := domain.Email
		if recipient == "" {
			recipient = s.defaultRecipient
		}
		byRecipient[recipient] = append(byRecipient[recipient], digest)
	}

	date := now.Format("2006-01-02")
	for recipient, domains := range byRecipient {
		sort.Slice(domains, func(i, j int) bool { return domains[i].DomainURL < domains[j].DomainURL })
		report := monitor.DigestReport{Date: date, Domains: domains}
		for _, d := range domains {
			report.TotalChanges += d.New + d.Modified + d.Removed
		}
		subject := fmt.Sprintf("Daily website change digest for %s", date)
		if err := s.notifier.Digest(ctx, recipient, subject, report); err != nil {
			s.logger.Warn("Digest notification failed",
				zap.String("recipient", recipient), zap.Error(err))
		}
	}

	return nil
}

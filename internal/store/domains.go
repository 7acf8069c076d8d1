package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// ErrDomainNotFound is returned by mutations targeting an unknown domain id.
var ErrDomainNotFound = errors.New("domain not found")

// validateDomain rejects field values a crawl could not run with. A zero
// crawl depth is legal (root page only); a non-positive page budget is not,
// since a crawl that visits nothing would read as every page removed.
func validateDomain(d monitor.Domain) error {
	if d.URL == "" {
		return fmt.Errorf("domain url is required")
	}
	if d.Interval <= 0 {
		return fmt.Errorf("domain interval must be > 0 minutes")
	}
	if d.CrawlDepth < 0 {
		return fmt.Errorf("domain crawl depth must be >= 0")
	}
	if d.MaxPages <= 0 {
		return fmt.Errorf("domain max pages must be > 0")
	}
	return nil
}

// AddDomain registers a new monitored site root.
func (s *Store) AddDomain(url, email string, interval, crawlDepth, maxPages int) (monitor.Domain, error) {
	id, err := s.newID()
	if err != nil {
		return monitor.Domain{}, err
	}
	domain := monitor.Domain{
		ID:         id,
		URL:        url,
		Interval:   interval,
		Email:      email,
		CrawlDepth: crawlDepth,
		MaxPages:   maxPages,
		IsActive:   true,
		CreatedAt:  s.clock.Now(),
	}
	if err := validateDomain(domain); err != nil {
		return monitor.Domain{}, err
	}
	s.domains.update(func(records []monitor.Domain) ([]monitor.Domain, bool) {
		return append(records, domain), true
	})
	return domain, nil
}

// AllDomains lists every domain in insertion order.
func (s *Store) AllDomains() []monitor.Domain {
	return s.domains.read()
}

// GetDomain returns the domain with the given id.
func (s *Store) GetDomain(id string) (monitor.Domain, bool) {
	for _, d := range s.domains.read() {
		if d.ID == id {
			return d, true
		}
	}
	return monitor.Domain{}, false
}

// UpdateDomain applies mutate to the stored domain. It returns
// ErrDomainNotFound for an unknown id; a mutation that leaves the record
// invalid is rolled back and its validation error returned.
func (s *Store) UpdateDomain(id string, mutate func(*monitor.Domain)) error {
	err := ErrDomainNotFound
	s.domains.update(func(records []monitor.Domain) ([]monitor.Domain, bool) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			prev := records[i]
			mutate(&records[i])
			if err = validateDomain(records[i]); err != nil {
				records[i] = prev
				return records, false
			}
			return records, true
		}
		return records, false
	})
	return err
}

// TouchDomainScraped records the completion time of a crawl.
func (s *Store) TouchDomainScraped(id string, at time.Time) bool {
	return s.UpdateDomain(id, func(d *monitor.Domain) {
		d.LastScrapedAt = &at
	}) == nil
}

// DeleteDomain removes the domain record. Dependent pages and changes keep
// their id references and become orphaned.
func (s *Store) DeleteDomain(id string) {
	s.domains.update(func(records []monitor.Domain) ([]monitor.Domain, bool) {
		kept := records[:0]
		removed := false
		for _, d := range records {
			if d.ID == id {
				removed = true
				continue
			}
			kept = append(kept, d)
		}
		return kept, removed
	})
}

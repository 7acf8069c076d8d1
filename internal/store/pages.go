package store

import (
	"fmt"
	"time"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// PageUpdate carries the fields refreshed on every successful fetch of a URL.
type PageUpdate struct {
	Title        string
	ContentHash  string
	StatusCode   int
	Links        monitor.LinkClassification
	TextSnapshot string
	HTMLSnapshot string
}

// UpsertPage creates the page on first observation or updates it in place on
// every later fetch. A page that reappears after removal becomes active
// again. At most one page exists per (domain_id, url).
func (s *Store) UpsertPage(domainID, url string, upd PageUpdate) (monitor.Page, error) {
	if domainID == "" || url == "" {
		return monitor.Page{}, fmt.Errorf("page domain id and url are required")
	}
	now := s.clock.Now()

	var result monitor.Page
	updated := false
	s.pages.update(func(records []monitor.Page) ([]monitor.Page, bool) {
		for i := range records {
			if records[i].DomainID == domainID && records[i].URL == url {
				p := &records[i]
				p.Title = upd.Title
				p.ContentHash = upd.ContentHash
				p.StatusCode = upd.StatusCode
				p.Links = upd.Links
				p.LastChecked = now
				p.IsActive = true
				p.RemovedAt = nil
				if upd.TextSnapshot != "" {
					p.TextSnapshot = upd.TextSnapshot
				}
				if upd.HTMLSnapshot != "" {
					p.HTMLSnapshot = upd.HTMLSnapshot
				}
				result = *p
				updated = true
				return records, true
			}
		}
		return records, false
	})
	if updated {
		return result, nil
	}

	id, err := s.newID()
	if err != nil {
		return monitor.Page{}, err
	}
	page := monitor.Page{
		ID:           id,
		DomainID:     domainID,
		URL:          url,
		Title:        upd.Title,
		ContentHash:  upd.ContentHash,
		StatusCode:   upd.StatusCode,
		FirstSeen:    now,
		LastChecked:  now,
		IsActive:     true,
		Links:        upd.Links,
		TextSnapshot: upd.TextSnapshot,
		HTMLSnapshot: upd.HTMLSnapshot,
	}
	s.pages.update(func(records []monitor.Page) ([]monitor.Page, bool) {
		// Re-check in case a concurrent writer created the page between the
		// two critical sections; the first writer wins.
		for i := range records {
			if records[i].DomainID == domainID && records[i].URL == url {
				page = records[i]
				return records, false
			}
		}
		return append(records, page), true
	})
	return page, nil
}

// GetPage returns the page with the given id.
func (s *Store) GetPage(id string) (monitor.Page, bool) {
	for _, p := range s.pages.read() {
		if p.ID == id {
			return p, true
		}
	}
	return monitor.Page{}, false
}

// GetPageByURL returns the page for (domainID, url).
func (s *Store) GetPageByURL(domainID, url string) (monitor.Page, bool) {
	for _, p := range s.pages.read() {
		if p.DomainID == domainID && p.URL == url {
			return p, true
		}
	}
	return monitor.Page{}, false
}

// DomainPages lists every page recorded under the domain.
func (s *Store) DomainPages(domainID string) []monitor.Page {
	var pages []monitor.Page
	for _, p := range s.pages.read() {
		if p.DomainID == domainID {
			pages = append(pages, p)
		}
	}
	return pages
}

// MarkPageRemoved soft-deletes a page that a completed crawl no longer
// observed.
func (s *Store) MarkPageRemoved(id string, at time.Time) bool {
	found := false
	s.pages.update(func(records []monitor.Page) ([]monitor.Page, bool) {
		for i := range records {
			if records[i].ID == id {
				records[i].IsActive = false
				removed := at
				records[i].RemovedAt = &removed
				found = true
				return records, true
			}
		}
		return records, false
	})
	return found
}

// DetectRemovedPages marks every active page of the domain whose URL is
// absent from currentURLs as removed and returns the affected pages.
func (s *Store) DetectRemovedPages(domainID string, currentURLs []string) []monitor.Page {
	seen := make(map[string]struct{}, len(currentURLs))
	for _, u := range currentURLs {
		seen[u] = struct{}{}
	}
	now := s.clock.Now()

	var removed []monitor.Page
	s.pages.update(func(records []monitor.Page) ([]monitor.Page, bool) {
		changed := false
		for i := range records {
			p := &records[i]
			if p.DomainID != domainID || !p.IsActive {
				continue
			}
			if _, ok := seen[p.URL]; ok {
				continue
			}
			p.IsActive = false
			at := now
			p.RemovedAt = &at
			removed = append(removed, *p)
			changed = true
		}
		return records, changed
	})
	return removed
}

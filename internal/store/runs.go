package store

import (
	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// CreateRun records the start of a domain crawl.
func (s *Store) CreateRun(domainID string) (monitor.ScrapeRun, error) {
	id, err := s.newID()
	if err != nil {
		return monitor.ScrapeRun{}, err
	}
	run := monitor.ScrapeRun{
		ID:        id,
		DomainID:  domainID,
		Status:    monitor.RunStatusRunning,
		StartedAt: s.clock.Now(),
	}
	s.runs.update(func(records []monitor.ScrapeRun) ([]monitor.ScrapeRun, bool) {
		return append(records, run), true
	})
	return run, nil
}

// UpdateRun applies mutate to the stored run; it reports whether the run
// existed. Used both for mid-crawl progress ticks and finalization.
func (s *Store) UpdateRun(id string, mutate func(*monitor.ScrapeRun)) bool {
	found := false
	s.runs.update(func(records []monitor.ScrapeRun) ([]monitor.ScrapeRun, bool) {
		for i := range records {
			if records[i].ID == id {
				mutate(&records[i])
				found = true
				return records, true
			}
		}
		return records, false
	})
	return found
}

// FinalizeRun stamps the run's terminal status and completion time.
func (s *Store) FinalizeRun(id string, status monitor.RunStatus, errMsg string) bool {
	now := s.clock.Now()
	return s.UpdateRun(id, func(r *monitor.ScrapeRun) {
		r.Status = status
		r.CompletedAt = &now
		r.ErrorMessage = errMsg
		r.CurrentURL = ""
	})
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(id string) (monitor.ScrapeRun, bool) {
	for _, r := range s.runs.read() {
		if r.ID == id {
			return r, true
		}
	}
	return monitor.ScrapeRun{}, false
}

// DomainRuns lists every run recorded for the domain.
func (s *Store) DomainRuns(domainID string) []monitor.ScrapeRun {
	var runs []monitor.ScrapeRun
	for _, r := range s.runs.read() {
		if r.DomainID == domainID {
			runs = append(runs, r)
		}
	}
	return runs
}

// AllRuns lists every run in insertion order.
func (s *Store) AllRuns() []monitor.ScrapeRun {
	return s.runs.read()
}

package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// ChangeInput carries everything needed to record a detected change.
type ChangeInput struct {
	PageID      string
	RunID       string
	Type        monitor.ChangeType
	OldSnapshot string
	NewSnapshot string
	DiffPath    string
	DOMDiffPath string
	Similarity  *float64
}

// AddChange records one detected event. Changes are immutable afterwards
// except for the notified flag.
func (s *Store) AddChange(in ChangeInput) (monitor.Change, error) {
	if in.PageID == "" {
		return monitor.Change{}, fmt.Errorf("change page id is required")
	}
	id, err := s.newID()
	if err != nil {
		return monitor.Change{}, err
	}
	change := monitor.Change{
		ID:          id,
		PageID:      in.PageID,
		RunID:       in.RunID,
		ChangeType:  in.Type,
		OldSnapshot: in.OldSnapshot,
		NewSnapshot: in.NewSnapshot,
		DiffPath:    in.DiffPath,
		DOMDiffPath: in.DOMDiffPath,
		Similarity:  in.Similarity,
		DetectedAt:  s.clock.Now(),
	}
	s.changes.update(func(records []monitor.Change) ([]monitor.Change, bool) {
		return append(records, change), true
	})
	return change, nil
}

// RunChanges lists every change recorded within the run, in detection order.
func (s *Store) RunChanges(runID string) []monitor.Change {
	var changes []monitor.Change
	for _, c := range s.changes.read() {
		if c.RunID == runID {
			changes = append(changes, c)
		}
	}
	return changes
}

// PageChanges lists every change recorded for the page.
func (s *Store) PageChanges(pageID string) []monitor.Change {
	var changes []monitor.Change
	for _, c := range s.changes.read() {
		if c.PageID == pageID {
			changes = append(changes, c)
		}
	}
	return changes
}

// DomainChanges lists every change belonging to any page of the domain.
func (s *Store) DomainChanges(domainID string) []monitor.Change {
	pageIDs := make(map[string]struct{})
	for _, p := range s.DomainPages(domainID) {
		pageIDs[p.ID] = struct{}{}
	}
	var changes []monitor.Change
	for _, c := range s.changes.read() {
		if _, ok := pageIDs[c.PageID]; ok {
			changes = append(changes, c)
		}
	}
	return changes
}

// RecentChanges returns up to limit changes sorted by detection time,
// newest first. A non-positive limit uses the configured default.
func (s *Store) RecentChanges(limit int) []monitor.Change {
	if limit <= 0 {
		limit = s.cfg.RecentChanges
	}
	changes := s.changes.read()
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].DetectedAt.After(changes[j].DetectedAt)
	})
	if len(changes) > limit {
		changes = changes[:limit]
	}
	return changes
}

// ChangesSince lists every change detected at or after the cutoff.
func (s *Store) ChangesSince(cutoff time.Time) []monitor.Change {
	var changes []monitor.Change
	for _, c := range s.changes.read() {
		if !c.DetectedAt.Before(cutoff) {
			changes = append(changes, c)
		}
	}
	return changes
}

// MarkChangesNotified flips the notified flag on the given changes in one
// write.
func (s *Store) MarkChangesNotified(ids []string) int {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	count := 0
	s.changes.update(func(records []monitor.Change) ([]monitor.Change, bool) {
		for i := range records {
			if _, ok := wanted[records[i].ID]; ok && !records[i].Notified {
				records[i].Notified = true
				count++
			}
		}
		return records, count > 0
	})
	return count
}

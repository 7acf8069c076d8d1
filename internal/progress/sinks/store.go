package sinks

import (
	"context"
	"fmt"

	"github.com/JakeFAU/sitewatch/internal/monitor"
	"github.com/JakeFAU/sitewatch/internal/progress"
	"github.com/JakeFAU/sitewatch/internal/store"
)

// StoreSink mirrors crawl progress into the run record so a dashboard polling
// the store sees the URL currently being processed and the live page count.
type StoreSink struct {
	store *store.Store
}

// NewStoreSink wires the entity store to the sink interface.
func NewStoreSink(st *store.Store) *StoreSink {
	return &StoreSink{store: st}
}

// Report updates the run record for page events; other stages are ignored
// because the scheduler owns run lifecycle transitions.
func (s *StoreSink) Report(_ context.Context, evt progress.Event) error {
	if evt.Stage != progress.StagePage && evt.Stage != progress.StageFile {
		return nil
	}
	if evt.RunID == "" {
		return nil
	}
	ok := s.store.UpdateRun(evt.RunID, func(run *monitor.ScrapeRun) {
		run.CurrentURL = evt.URL
		run.PagesCrawled = evt.Visited
	})
	if !ok {
		return fmt.Errorf("progress update: run %s not found", evt.RunID)
	}
	return nil
}

// Package sinks provides the built-in progress sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/progress"
)

// LogSink emits structured logs for crawl progress. It is useful during
// development or audits where a metrics backend is unavailable.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Report logs the event using structured fields.
func (s *LogSink) Report(_ context.Context, evt progress.Event) error {
	s.logger.Info("crawl progress",
		zap.String("stage", string(evt.Stage)),
		zap.String("domain_id", evt.DomainID),
		zap.String("run_id", evt.RunID),
		zap.String("url", evt.URL),
		zap.Int("depth", evt.Depth),
		zap.Int("visited", evt.Visited),
		zap.String("status", evt.Status),
		zap.String("note", evt.Note),
	)
	return nil
}

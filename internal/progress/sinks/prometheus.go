package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/sitewatch/internal/progress"
)

// PrometheusSink exports crawl progress metrics. It owns all collectors for
// runs started/completed/running and per-status page counters.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runsRunning   prometheus.Gauge
	pagesTotal    *prometheus.CounterVec
	filesTotal    prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitewatch_runs_started_total",
			Help: "Total crawl runs that have started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_runs_completed_total",
			Help: "Total crawl runs completed partitioned by result.",
		}, []string{"result"}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitewatch_runs_running",
			Help: "Current number of running crawl runs.",
		}),
		pagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_pages_total",
			Help: "Pages processed partitioned by pipeline outcome.",
		}, []string{"status"}),
		filesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitewatch_files_downloaded_total",
			Help: "Non-HTML resources downloaded during crawls.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runsRunning,
		s.pagesTotal,
		s.filesTotal,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Report translates one event into collector updates.
func (s *PrometheusSink) Report(_ context.Context, evt progress.Event) error {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
		s.runsRunning.Inc()
	case progress.StagePage:
		s.pagesTotal.WithLabelValues(evt.Status).Inc()
	case progress.StageFile:
		s.filesTotal.Inc()
	case progress.StageRunDone:
		s.runsRunning.Dec()
		s.runsCompleted.WithLabelValues(evt.Status).Inc()
	case progress.StageRunError:
		s.runsRunning.Dec()
		s.runsCompleted.WithLabelValues("failed").Inc()
	}
	return nil
}

// Package progress defines the live progress events emitted during a crawl
// and the sinks that consume them.
package progress

import "time"

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart Stage = "RUN_START"
	StagePage     Stage = "PAGE"
	StageFile     Stage = "FILE"
	StageRunDone  Stage = "RUN_DONE"
	StageRunError Stage = "RUN_ERROR"
)

// Event captures a single milestone of crawl progress.
type Event struct {
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which crawl milestone occurred.
	Stage Stage
	// DomainID and RunID scope the event to one scheduled crawl.
	DomainID string
	RunID    string
	// URL is the page or file being processed, when applicable.
	URL string
	// Depth is the frontier depth of the URL.
	Depth int
	// Visited is the running count of distinct URLs taken off the frontier.
	Visited int
	// Status carries the pipeline outcome for page events and the run
	// status for run events.
	Status string
	// Note attaches low-volume context such as error text.
	Note string
}

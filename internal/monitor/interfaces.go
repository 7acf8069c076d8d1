package monitor

import (
	"context"
	"time"
)

// Fetcher performs a polite, robots-compliant fetch of a single URL.
type Fetcher interface {
	// Allowed reports whether robots.txt permits fetching the URL. Any
	// failure to fetch or parse robots.txt is treated as allowed.
	Allowed(ctx context.Context, rawURL string) bool
	// Delay sleeps for the configured randomized politeness interval. It
	// returns early with the context error if ctx is cancelled.
	Delay(ctx context.Context) error
	Fetch(ctx context.Context, rawURL string) (FetchResponse, error)
	Head(ctx context.Context, rawURL string) (int, error)
}

// FetchResponse is the result of a single GET.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Hasher computes content fingerprints.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// Notifier consumes structured change data. Rendering and transport are
// outside the core; implementations may log, mail, or publish.
type Notifier interface {
	Alert(ctx context.Context, recipient, subject string, changes []ChangeDetail, domainURL string) error
	Completion(ctx context.Context, recipient, domainURL string, run ScrapeRun) error
	Digest(ctx context.Context, recipient, subject string, report DigestReport) error
}

// Package monitor defines core types shared across subsystems.
package monitor

import "time"

// RunStatus represents the lifecycle state of a scrape run.
type RunStatus string

// Run status values persisted in the run record set.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ChangeType classifies a detected page event.
type ChangeType string

// Change type values persisted in the change record set.
const (
	ChangeTypeNew      ChangeType = "new"
	ChangeTypeModified ChangeType = "modified"
	ChangeTypeRemoved  ChangeType = "removed"
)

// Domain is a monitored site root.
type Domain struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Interval      int        `json:"interval_minutes"`
	Email         string     `json:"email"`
	CrawlDepth    int        `json:"crawl_depth"`
	MaxPages      int        `json:"max_pages"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
}

// Link is one classified outbound anchor on a page.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
	// Host is set for external links only.
	Host string `json:"domain,omitempty"`
	// Type is set for file links only (extension without dot).
	Type string `json:"type,omitempty"`
}

// LinkClassification buckets a page's outbound anchors.
type LinkClassification struct {
	Internal []Link `json:"internal"`
	External []Link `json:"external"`
	Files    []Link `json:"files"`
}

// Page is one URL discovered under a Domain. At most one Page exists per
// (domain_id, url) pair.
type Page struct {
	ID          string             `json:"id"`
	DomainID    string             `json:"domain_id"`
	URL         string             `json:"url"`
	Title       string             `json:"title"`
	ContentHash string             `json:"content_hash"`
	StatusCode  int                `json:"status_code"`
	FirstSeen   time.Time          `json:"first_seen"`
	LastChecked time.Time          `json:"last_checked_at"`
	IsActive    bool               `json:"is_active"`
	RemovedAt   *time.Time         `json:"removed_at,omitempty"`
	Links       LinkClassification `json:"links"`
	// Snapshot references let the pipeline reach the immediately prior
	// snapshot without listing the snapshot directory.
	TextSnapshot string `json:"text_snapshot,omitempty"`
	HTMLSnapshot string `json:"html_snapshot,omitempty"`
}

// ScrapeRun is one execution of a domain crawl.
type ScrapeRun struct {
	ID              string     `json:"id"`
	DomainID        string     `json:"domain_id"`
	Status          RunStatus  `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	PagesCrawled    int        `json:"pages_crawled"`
	PagesChanged    int        `json:"pages_changed"`
	PagesNew        int        `json:"pages_new"`
	PagesRemoved    int        `json:"pages_removed"`
	FilesDownloaded int        `json:"files_downloaded"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CurrentURL      string     `json:"current_url,omitempty"`
}

// Change is one detected content/lifecycle event for a Page within a run.
// Immutable once recorded except the Notified flag.
type Change struct {
	ID          string     `json:"id"`
	PageID      string     `json:"page_id"`
	RunID       string     `json:"run_id"`
	ChangeType  ChangeType `json:"change_type"`
	OldSnapshot string     `json:"old_snapshot,omitempty"`
	NewSnapshot string     `json:"new_snapshot,omitempty"`
	DiffPath    string     `json:"diff_path,omitempty"`
	DOMDiffPath string     `json:"dom_diff_path,omitempty"`
	// Similarity is set for modified changes only, in [0,1].
	Similarity *float64  `json:"similarity_score,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
	Notified   bool      `json:"notified"`
}

// FileRecord is a non-HTML resource discovered and downloaded.
type FileRecord struct {
	ID           string    `json:"id"`
	DomainID     string    `json:"domain_id"`
	URL          string    `json:"url"`
	StoragePath  string    `json:"storage_path"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// CrawlStats aggregates the outcome of one BFS crawl.
type CrawlStats struct {
	PagesCrawled    int      `json:"pages_crawled"`
	PagesNew        int      `json:"pages_new"`
	PagesModified   int      `json:"pages_modified"`
	PagesUnchanged  int      `json:"pages_unchanged"`
	PagesError      int      `json:"pages_error"`
	FilesDownloaded int      `json:"files_downloaded"`
	URLs            []string `json:"urls"`
	Errors          []string `json:"errors,omitempty"`
}

// ChangeDetail is a Change enriched with its page's URL and title for
// notification payloads.
type ChangeDetail struct {
	Change
	PageURL   string `json:"page_url"`
	PageTitle string `json:"page_title"`
}

// DomainDigest groups one domain's trailing-window changes for the daily
// digest.
type DomainDigest struct {
	DomainURL string         `json:"domain_url"`
	Email     string         `json:"email"`
	New       int            `json:"new"`
	Modified  int            `json:"modified"`
	Removed   int            `json:"removed"`
	Changes   []ChangeDetail `json:"changes"`
}

// DigestReport is the cross-domain aggregation handed to the Notifier once a
// day.
type DigestReport struct {
	Date         string         `json:"date"`
	TotalChanges int            `json:"total_changes"`
	Domains      []DomainDigest `json:"domains"`
}

// HostCount is one external host and how many stored links point at it.
type HostCount struct {
	Host  string `json:"host"`
	Count int    `json:"count"`
}

// DomainLinkStats aggregates the classified outbound links across every
// stored page of one domain.
type DomainLinkStats struct {
	InternalLinks    int         `json:"internal_links"`
	ExternalLinks    int         `json:"external_links"`
	FileLinks        int         `json:"file_links"`
	TopExternalHosts []HostCount `json:"top_external_hosts"`
}

// Analytics summarizes the record sets for the dashboard.
type Analytics struct {
	TotalDomains  int      `json:"total_domains"`
	ActiveDomains int      `json:"active_domains"`
	TotalRuns     int      `json:"total_runs"`
	CompletedRuns int      `json:"completed_runs"`
	TotalPages    int      `json:"total_pages"`
	TotalChanges  int      `json:"total_changes"`
	RecentChanges []Change `json:"recent_changes"`
}

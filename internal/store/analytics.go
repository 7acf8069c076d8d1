package store

import (
	"net/url"
	"sort"
	"strings"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// topExternalHosts bounds the host ranking in DomainLinkStats.
const topExternalHosts = 10

// Analytics aggregates entity counts and the most recent changes for the
// dashboard.
func (s *Store) Analytics() monitor.Analytics {
	domains := s.domains.read()
	runs := s.runs.read()

	active := 0
	for _, d := range domains {
		if d.IsActive {
			active++
		}
	}
	completed := 0
	for _, r := range runs {
		if r.Status == monitor.RunStatusCompleted {
			completed++
		}
	}
	return monitor.Analytics{
		TotalDomains:  len(domains),
		ActiveDomains: active,
		TotalRuns:     len(runs),
		CompletedRuns: completed,
		TotalPages:    len(s.pages.read()),
		TotalChanges:  len(s.changes.read()),
		RecentChanges: s.RecentChanges(10),
	}
}

// DomainLinkStats totals the classified outbound links across the domain's
// pages, removed ones included, and ranks the most-linked external hosts.
func (s *Store) DomainLinkStats(domainID string) monitor.DomainLinkStats {
	stats := monitor.DomainLinkStats{TopExternalHosts: []monitor.HostCount{}}
	byHost := make(map[string]int)
	for _, p := range s.pages.read() {
		if p.DomainID != domainID {
			continue
		}
		stats.InternalLinks += len(p.Links.Internal)
		stats.ExternalLinks += len(p.Links.External)
		stats.FileLinks += len(p.Links.Files)
		for _, l := range p.Links.External {
			if l.Host != "" {
				byHost[l.Host]++
			}
		}
	}
	for host, count := range byHost {
		stats.TopExternalHosts = append(stats.TopExternalHosts, monitor.HostCount{Host: host, Count: count})
	}
	sort.Slice(stats.TopExternalHosts, func(i, j int) bool {
		a, b := stats.TopExternalHosts[i], stats.TopExternalHosts[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Host < b.Host
	})
	if len(stats.TopExternalHosts) > topExternalHosts {
		stats.TopExternalHosts = stats.TopExternalHosts[:topExternalHosts]
	}
	return stats
}

// FixMissingTitles backfills a readable title, derived from the URL path,
// onto pages that have none. Returns the number of pages touched.
func (s *Store) FixMissingTitles() int {
	count := 0
	s.pages.update(func(records []monitor.Page) ([]monitor.Page, bool) {
		for i := range records {
			p := &records[i]
			if p.Title != "" && p.Title != "No Title" {
				continue
			}
			title := titleFromURL(p.URL)
			if title != p.Title {
				p.Title = title
				count++
			}
		}
		return records, count > 0
	})
	return count
}

// FixNotifiedFlags marks every unnotified change as notified, reconciling
// records left behind by interrupted notification dispatch. Returns the
// number of changes touched.
func (s *Store) FixNotifiedFlags() int {
	count := 0
	s.changes.update(func(records []monitor.Change) ([]monitor.Change, bool) {
		for i := range records {
			if !records[i].Notified {
				records[i].Notified = true
				count++
			}
		}
		return records, count > 0
	})
	return count
}

func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return rawURL
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	segment := segments[len(segments)-1]
	if segment == "" {
		return rawURL
	}
	if idx := strings.LastIndex(segment, "."); idx > 0 {
		segment = segment[:idx]
	}
	segment = strings.ReplaceAll(segment, "-", " ")
	segment = strings.ReplaceAll(segment, "_", " ")
	words := strings.Fields(segment)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return rawURL
	}
	return strings.Join(words, " ")
}

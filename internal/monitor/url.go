package monitor

import (
	"fmt"
	"net/url"
	"strings"
)

// fileExtensions is the suffix allow-list for downloadable resources.
var fileExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".rar", ".tar", ".gz", ".jpg", ".jpeg", ".png",
	".gif", ".svg", ".mp4", ".mp3", ".avi", ".mov",
	".txt", ".json", ".xml", ".csv",
}

// NormalizeURL standardizes a URL to avoid frontier duplicates. It lowercases
// the scheme and host, removes default ports and fragments, sorts query
// parameters, and strips a trailing slash except on a bare root path; an
// empty path becomes "/" so both root spellings collapse to one URL. The
// function is idempotent.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	q := u.Query()
	u.RawQuery = q.Encode()

	if u.Path == "" {
		u.Path = "/"
	} else if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// SameDomain reports whether two URLs share a host, ignoring a leading
// "www." label on either side.
func SameDomain(url1, url2 string) bool {
	return canonicalHost(url1) != "" && canonicalHost(url1) == canonicalHost(url2)
}

func canonicalHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// IsFileURL reports whether the URL path ends in a downloadable file
// extension.
func IsFileURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range fileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// FileExtension returns the lowercase extension of the URL path without the
// dot, or "" when the path has none.
func FileExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.ToLower(u.Path)
	idx := strings.LastIndex(path, ".")
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	return path[idx+1:]
}

// HostDir returns the URL host as a filesystem directory key, with any port
// separator replaced so the name stays portable.
func HostDir(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		return "unknown"
	}
	return strings.ReplaceAll(host, ":", "_")
}

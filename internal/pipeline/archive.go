package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// TimestampFormat names snapshot and artifact files at second resolution.
const TimestampFormat = "20060102_150405"

// Archive owns the on-disk artifact tree. Directories are partitioned per
// normalized host so concurrent domain crawls never share a directory.
type Archive struct {
	snapshotDir   string
	alertDir      string
	attachmentDir string
}

// NewArchive returns an Archive rooted at the three artifact directories.
func NewArchive(snapshotDir, alertDir, attachmentDir string) *Archive {
	return &Archive{
		snapshotDir:   snapshotDir,
		alertDir:      alertDir,
		attachmentDir: attachmentDir,
	}
}

// WriteSnapshots persists the extracted text and raw HTML of one fetch and
// returns both paths.
func (a *Archive) WriteSnapshots(host, ts string, text, html []byte) (string, string, error) {
	dir := filepath.Join(a.snapshotDir, host)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create snapshot dir: %w", err)
	}
	txtPath := filepath.Join(dir, ts+".txt")
	if err := os.WriteFile(txtPath, text, 0o644); err != nil {
		return "", "", fmt.Errorf("write text snapshot: %w", err)
	}
	htmlPath := filepath.Join(dir, ts+".html")
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return "", "", fmt.Errorf("write html snapshot: %w", err)
	}
	return txtPath, htmlPath, nil
}

// ReadSnapshot loads a previously written snapshot. A missing or unreadable
// file reports ok=false; diffing degrades gracefully without a baseline.
func (a *Archive) ReadSnapshot(path string) ([]byte, bool) {
	if path == "" {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// WriteTextDiff stores a unified text diff alert artifact.
func (a *Archive) WriteTextDiff(host, pageID, ts, diff string) (string, error) {
	dir := filepath.Join(a.alertDir, host)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create alert dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("diff_%s_%s.txt", pageID, ts))
	if err := os.WriteFile(path, []byte(diff), 0o644); err != nil {
		return "", fmt.Errorf("write text diff: %w", err)
	}
	return path, nil
}

// WriteDOMDiff stores a rendered DOM diff report alert artifact.
func (a *Archive) WriteDOMDiff(host, pageID, ts, html string) (string, error) {
	dir := filepath.Join(a.alertDir, host)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create alert dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("dom_diff_%s_%s.html", pageID, ts))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write dom diff: %w", err)
	}
	return path, nil
}

// WriteAttachment stores a downloaded non-HTML resource and returns its path.
func (a *Archive) WriteAttachment(host, ts, ext string, body []byte) (string, error) {
	dir := filepath.Join(a.attachmentDir, host)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create attachment dir: %w", err)
	}
	name := ts
	if ext != "" {
		name = ts + "." + ext
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return path, nil
}

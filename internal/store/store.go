// Package store persists the monitor's entity record sets as JSON documents
// on the local filesystem.
//
// Writes are best-effort: every mutation rewrites the whole record set to a
// temporary file and renames it into place, retrying transient failures a few
// times before logging and dropping the write. Callers get "write attempted"
// semantics, not "write confirmed"; the store never surfaces a write failure
// beyond its own log line. Reads of a missing or corrupt backing file degrade
// to an empty record set.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

const (
	saveAttempts = 3
	saveBackoff  = 100 * time.Millisecond
)

// Config captures the store's filesystem layout.
type Config struct {
	// DataDir is the directory holding the JSON record sets.
	DataDir string
	// RecentChanges bounds the default recent-change listing.
	RecentChanges int
}

// Store is the durable record-keeper for domains, pages, runs, changes and
// files. It is safe for concurrent use; each record set serializes its
// mutations through its own lock.
type Store struct {
	cfg    Config
	ids    monitor.IDGenerator
	clock  monitor.Clock
	logger *zap.Logger

	domains *recordSet[monitor.Domain]
	pages   *recordSet[monitor.Page]
	runs    *recordSet[monitor.ScrapeRun]
	changes *recordSet[monitor.Change]
	files   *recordSet[monitor.FileRecord]
}

// New constructs a Store rooted at cfg.DataDir, creating the directory when
// absent.
func New(cfg Config, ids monitor.IDGenerator, clock monitor.Clock, logger *zap.Logger) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if cfg.RecentChanges <= 0 {
		cfg.RecentChanges = 50
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		cfg:    cfg,
		ids:    ids,
		clock:  clock,
		logger: logger,
	}
	s.domains = newRecordSet[monitor.Domain](filepath.Join(cfg.DataDir, "domains.json"), "domains", logger)
	s.pages = newRecordSet[monitor.Page](filepath.Join(cfg.DataDir, "pages.json"), "pages", logger)
	s.runs = newRecordSet[monitor.ScrapeRun](filepath.Join(cfg.DataDir, "runs.json"), "runs", logger)
	s.changes = newRecordSet[monitor.Change](filepath.Join(cfg.DataDir, "changes.json"), "changes", logger)
	s.files = newRecordSet[monitor.FileRecord](filepath.Join(cfg.DataDir, "files.json"), "files", logger)
	return s, nil
}

func (s *Store) newID() (string, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate record id: %w", err)
	}
	return id, nil
}

// recordSet is one named JSON collection. All access goes through its mutex
// so a mutation always sees the latest saved state.
type recordSet[T any] struct {
	path   string
	key    string
	mu     sync.Mutex
	logger *zap.Logger
}

func newRecordSet[T any](path, key string, logger *zap.Logger) *recordSet[T] {
	return &recordSet[T]{path: path, key: key, logger: logger}
}

// read returns a copy of the current records.
func (r *recordSet[T]) read() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

// update applies fn to the current records under the write lock and persists
// the result when fn reports a change.
func (r *recordSet[T]) update(fn func(records []T) ([]T, bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.loadLocked()
	next, changed := fn(records)
	if !changed {
		return
	}
	r.saveLocked(next)
}

func (r *recordSet[T]) loadLocked() []T {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("record set unreadable; treating as empty",
				zap.String("path", r.path), zap.Error(err))
		}
		return nil
	}
	var doc map[string][]T
	if err := json.Unmarshal(raw, &doc); err != nil {
		r.logger.Warn("record set corrupt; treating as empty",
			zap.String("path", r.path), zap.Error(err))
		return nil
	}
	return doc[r.key]
}

// saveLocked replaces the record set file atomically. Failures are retried
// and ultimately dropped with a log line.
func (r *recordSet[T]) saveLocked(records []T) {
	if records == nil {
		records = []T{}
	}
	doc := map[string][]T{r.key: records}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		r.logger.Error("record set marshal failed; write dropped",
			zap.String("path", r.path), zap.Error(err))
		return
	}

	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(saveBackoff)
		}
		if lastErr = r.replaceFile(raw); lastErr == nil {
			return
		}
	}
	r.logger.Error("record set write dropped after retries",
		zap.String("path", r.path), zap.Int("attempts", saveAttempts), zap.Error(lastErr))
}

func (r *recordSet[T]) replaceFile(raw []byte) error {
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

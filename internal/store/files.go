package store

import (
	"fmt"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// AddFile tracks a downloaded non-HTML resource. File records are never
// mutated.
func (s *Store) AddFile(domainID, url, storagePath, fileType string, size int64) (monitor.FileRecord, error) {
	if url == "" || storagePath == "" {
		return monitor.FileRecord{}, fmt.Errorf("file url and storage path are required")
	}
	id, err := s.newID()
	if err != nil {
		return monitor.FileRecord{}, err
	}
	if fileType == "" {
		fileType = "unknown"
	}
	record := monitor.FileRecord{
		ID:           id,
		DomainID:     domainID,
		URL:          url,
		StoragePath:  storagePath,
		FileType:     fileType,
		FileSize:     size,
		DownloadedAt: s.clock.Now(),
	}
	s.files.update(func(records []monitor.FileRecord) ([]monitor.FileRecord, bool) {
		return append(records, record), true
	})
	return record, nil
}

// GetFile returns the file record with the given id.
func (s *Store) GetFile(id string) (monitor.FileRecord, bool) {
	for _, f := range s.files.read() {
		if f.ID == id {
			return f, true
		}
	}
	return monitor.FileRecord{}, false
}

// DomainFiles lists every file downloaded under the domain.
func (s *Store) DomainFiles(domainID string) []monitor.FileRecord {
	var files []monitor.FileRecord
	for _, f := range s.files.read() {
		if f.DomainID == domainID {
			files = append(files, f)
		}
	}
	return files
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tendant/media-proxy/pkg/mediaproxy/repo"
)

// Store is an in-memory implementation of repo.URLRecordStore for tests and
// development.
type Store struct {
	mu      sync.RWMutex
	records []repo.URLRecord
}

// New creates a new in-memory URL record store
func New(records []repo.URLRecord) *Store {
	s := &Store{records: append([]repo.URLRecord(nil), records...)}
	sort.Slice(s.records, func(i, j int) bool {
		a, b := s.records[i], s.records[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.RowID < b.RowID
	})
	return s
}

// ListMediaURLs pages through records in insertion-sorted order
func (s *Store) ListMediaURLs(ctx context.Context, limit, offset int) ([]repo.URLRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset >= len(s.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.records) {
		end = len(s.records)
	}
	return append([]repo.URLRecord(nil), s.records[offset:end]...), nil
}

// UpdateMediaURL rewrites the URL of the identified record
func (s *Store) UpdateMediaURL(ctx context.Context, rec repo.URLRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].Table == rec.Table && s.records[i].Column == rec.Column && s.records[i].RowID == rec.RowID {
			s.records[i].URL = rec.URL
			return nil
		}
	}
	return nil
}

// Records returns a copy of the current records, for test assertions.
func (s *Store) Records() []repo.URLRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]repo.URLRecord(nil), s.records...)
}

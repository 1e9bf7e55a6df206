package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
)

// Ensure AlertStore implements the interface.
var _ driven.AlertStore = (*AlertStore)(nil)

// AlertStore is an in-memory implementation of driven.AlertStore.
// The mutex makes Reserve atomic within the process; cross-process
// arbitration needs the SQLite store.
type AlertStore struct {
	mu      sync.Mutex
	records []domain.AlertRecord
}

// NewAlertStore creates a new in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{}
}

// Reserve atomically inserts the record unless another record with the same
// fingerprint falls inside the window.
func (s *AlertStore) Reserve(_ context.Context, record domain.AlertRecord, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := record.SentAt.Add(-window)
	for _, r := range s.records {
		if r.Fingerprint == record.Fingerprint && r.SentAt.After(cutoff) {
			return false, nil
		}
	}
	s.records = append(s.records, record)
	return true, nil
}

// Release removes a reservation after a failed delivery.
func (s *AlertStore) Release(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListRecent returns the most recent alert records, newest first.
func (s *AlertStore) ListRecent(_ context.Context, limit int) ([]domain.AlertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := make([]domain.AlertRecord, len(s.records))
	copy(sorted, s.records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SentAt.After(sorted[j].SentAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

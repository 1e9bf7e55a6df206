package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
)

// Ensure ChangeStore implements the interface.
var _ driven.ChangeStore = (*ChangeStore)(nil)

// ChangeStore is an in-memory implementation of driven.ChangeStore.
type ChangeStore struct {
	mu      sync.RWMutex
	byID    map[string]int
	changes []domain.Change
}

// NewChangeStore creates a new in-memory change store.
func NewChangeStore() *ChangeStore {
	return &ChangeStore{
		byID: make(map[string]int),
	}
}

// Save stores a change record. Re-saving an existing id is a no-op.
func (s *ChangeStore) Save(_ context.Context, change *domain.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[change.ID]; exists {
		return nil
	}
	s.byID[change.ID] = len(s.changes)
	s.changes = append(s.changes, *change)
	return nil
}

// Get retrieves a change by ID.
func (s *ChangeStore) Get(_ context.Context, id string) (*domain.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	change := s.changes[idx]
	return &change, nil
}

// MarkAlertSent flags a change as alerted.
func (s *ChangeStore) MarkAlertSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.changes[idx].AlertSent = true
	return nil
}

// ListByWindow returns changes detected in [start, end) at or above
// minLevel, ordered by score descending then entity key.
func (s *ChangeStore) ListByWindow(_ context.Context, start, end time.Time, minLevel domain.SignificanceLevel) ([]domain.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Change
	for _, c := range s.changes {
		if c.DetectedAt.Before(start) || !c.DetectedAt.Before(end) {
			continue
		}
		if c.Level.Rank() < minLevel.Rank() {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		if result[i].EntityType != result[j].EntityType {
			return result[i].EntityType < result[j].EntityType
		}
		return result[i].EntityID < result[j].EntityID
	})
	return result, nil
}

// ListRecent returns the most recently detected changes, newest first.
func (s *ChangeStore) ListRecent(_ context.Context, limit int) ([]domain.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sorted := make([]domain.Change, len(s.changes))
	copy(sorted, s.changes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DetectedAt.After(sorted[j].DetectedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

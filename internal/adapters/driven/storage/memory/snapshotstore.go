// Package memory provides in-memory implementations of the persistence
// ports, used for dry runs and tests. State does not survive the process.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore is an in-memory implementation of driven.SnapshotStore.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[domain.EntityKey]domain.Snapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[domain.EntityKey]domain.Snapshot),
	}
}

// Get retrieves the current snapshot for a key.
func (s *SnapshotStore) Get(_ context.Context, key domain.EntityKey) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &snap, nil
}

// Upsert stores or replaces the current snapshot for its key.
func (s *SnapshotStore) Upsert(_ context.Context, snapshot domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.Key()] = snapshot
	return nil
}

// ListByType returns all current snapshots for an entity type, ordered by
// entity id.
func (s *SnapshotStore) ListByType(_ context.Context, entityType domain.EntityType) ([]domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Snapshot
	for _, snap := range s.snapshots {
		if snap.EntityType == entityType {
			result = append(result, snap)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EntityID < result[j].EntityID
	})
	return result, nil
}

// Delete removes the current snapshot for a key.
func (s *SnapshotStore) Delete(_ context.Context, key domain.EntityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, key)
	return nil
}

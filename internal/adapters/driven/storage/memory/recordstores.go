package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
)

// Ensure DigestStore implements the interface.
var _ driven.DigestStore = (*DigestStore)(nil)

// DigestStore is an in-memory implementation of driven.DigestStore.
type DigestStore struct {
	mu      sync.RWMutex
	digests []domain.Digest
}

// NewDigestStore creates a new in-memory digest store.
func NewDigestStore() *DigestStore {
	return &DigestStore{}
}

// Save stores a digest.
func (s *DigestStore) Save(_ context.Context, digest *domain.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests = append(s.digests, *digest)
	return nil
}

// ListRecent returns the most recently generated digests, newest first.
func (s *DigestStore) ListRecent(_ context.Context, limit int) ([]domain.Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sorted := make([]domain.Digest, len(s.digests))
	copy(sorted, s.digests)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].GeneratedAt.After(sorted[j].GeneratedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs []domain.CycleRun
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{}
}

// Record logs a completed cycle run.
func (s *RunStore) Record(_ context.Context, run *domain.CycleRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

// ListRecent returns recent runs, most recent first.
func (s *RunStore) ListRecent(_ context.Context, limit int) ([]domain.CycleRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sorted := make([]domain.CycleRun, len(s.runs))
	copy(sorted, s.runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.After(sorted[j].StartedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// Prune removes old runs beyond the retention limit, keeping the most
// recent 'keep' runs.
func (s *RunStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runs) <= keep {
		return nil
	}
	sort.SliceStable(s.runs, func(i, j int) bool {
		return s.runs[i].StartedAt.Before(s.runs[j].StartedAt)
	})
	s.runs = s.runs[len(s.runs)-keep:]
	return nil
}

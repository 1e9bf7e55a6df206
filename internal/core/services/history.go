package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.History = (*HistoryService)(nil)

// HistoryService exposes read-only views over the audit trail.
type HistoryService struct {
	changeStore driven.ChangeStore
	runStore    driven.RunStore
	digestStore driven.DigestStore
}

// NewHistoryService creates a history service.
func NewHistoryService(
	changeStore driven.ChangeStore,
	runStore driven.RunStore,
	digestStore driven.DigestStore,
) *HistoryService {
	return &HistoryService{
		changeStore: changeStore,
		runStore:    runStore,
		digestStore: digestStore,
	}
}

// RecentChanges returns the most recently detected changes, newest first.
func (h *HistoryService) RecentChanges(ctx context.Context, limit int) ([]domain.Change, error) {
	changes, err := h.changeStore.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent changes: %w", err)
	}
	return changes, nil
}

// RecentRuns returns the most recent ingestion cycle runs.
func (h *HistoryService) RecentRuns(ctx context.Context, limit int) ([]domain.CycleRun, error) {
	runs, err := h.runStore.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	return runs, nil
}

// RecentDigests returns the most recently generated digests.
func (h *HistoryService) RecentDigests(ctx context.Context, limit int) ([]domain.Digest, error) {
	digests, err := h.digestStore.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent digests: %w", err)
	}
	return digests, nil
}

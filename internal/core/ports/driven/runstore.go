package driven

import (
	"context"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// RunStore persists ingestion cycle audit records.
type RunStore interface {
	// Record logs a completed cycle run.
	Record(ctx context.Context, run *domain.CycleRun) error

	// ListRecent returns recent runs, most recent first.
	ListRecent(ctx context.Context, limit int) ([]domain.CycleRun, error)

	// Prune removes old runs beyond the retention limit.
	// Keeps the most recent 'keep' runs.
	Prune(ctx context.Context, keep int) error
}

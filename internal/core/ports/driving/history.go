package driving

import (
	"context"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// History exposes read-only views over the audit trail for inspection
// surfaces such as the CLI.
type History interface {
	// RecentChanges returns the most recently detected changes.
	RecentChanges(ctx context.Context, limit int) ([]domain.Change, error)

	// RecentRuns returns the most recent ingestion cycle runs.
	RecentRuns(ctx context.Context, limit int) ([]domain.CycleRun, error)

	// RecentDigests returns the most recently generated digests.
	RecentDigests(ctx context.Context, limit int) ([]domain.Digest, error)
}

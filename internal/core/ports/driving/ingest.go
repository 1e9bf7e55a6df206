package driving

import (
	"context"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// IngestPipeline runs one synchronous ingestion cycle: diff a batch against
// stored snapshots, persist the resulting changes, and alert on the
// qualifying ones.
//
// The pipeline is invoked by an external scheduler with at-least-once
// semantics, so every operation is safe to re-run with the same inputs.
type IngestPipeline interface {
	// ProcessBatch processes a single (source, entity type) batch.
	// The returned result is for observability; a non-nil error means the
	// cycle aborted, though changes computed before the failure are kept.
	ProcessBatch(ctx context.Context, batch domain.Batch) (domain.CycleResult, error)
}

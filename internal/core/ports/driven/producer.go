package driven

import (
	"context"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// ObservationProducer supplies structured observation batches.
//
// The producer boundary hides the extraction technique entirely: a batch
// looks the same whether it came from a chat search, a wiki export, a
// filings poller or AI-assisted extraction. Swapping techniques requires
// no core change.
type ObservationProducer interface {
	// Produce returns the observation batches for this cycle.
	Produce(ctx context.Context) ([]domain.Batch, error)
}

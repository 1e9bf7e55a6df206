package driven

import (
	"context"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// SnapshotStore persists the latest observed state per entity key.
// At most one current snapshot exists per (entity type, entity id);
// implementations may retain superseded versions for audit, but only the
// current row is ever returned for diffing.
type SnapshotStore interface {
	// Get retrieves the current snapshot for a key.
	// Returns domain.ErrNotFound if no snapshot exists.
	Get(ctx context.Context, key domain.EntityKey) (*domain.Snapshot, error)

	// Upsert stores or replaces the current snapshot for its key.
	// Idempotent: re-upserting identical state is a no-op apart from
	// the UpdatedAt timestamp.
	Upsert(ctx context.Context, snapshot domain.Snapshot) error

	// ListByType returns all current snapshots for an entity type,
	// regardless of which source last observed them. Entity identity is
	// global: the diff must see a snapshot even when another source
	// stored it.
	ListByType(ctx context.Context, entityType domain.EntityType) ([]domain.Snapshot, error)

	// Delete removes the current snapshot for a key.
	// Deleting a missing key is not an error.
	Delete(ctx context.Context, key domain.EntityKey) error
}

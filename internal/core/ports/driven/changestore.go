package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// ChangeStore persists detected changes. Changes are immutable once saved
// except for the alert-sent flag.
type ChangeStore interface {
	// Save stores a change record.
	Save(ctx context.Context, change *domain.Change) error

	// Get retrieves a change by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Change, error)

	// MarkAlertSent flags a change as alerted.
	// The only permitted mutation after creation.
	MarkAlertSent(ctx context.Context, id string) error

	// ListByWindow returns changes with DetectedAt in [start, end) whose
	// level ranks at or above minLevel, ordered by score descending then
	// entity key for determinism.
	ListByWindow(ctx context.Context, start, end time.Time, minLevel domain.SignificanceLevel) ([]domain.Change, error)

	// ListRecent returns the most recently detected changes, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.Change, error)
}

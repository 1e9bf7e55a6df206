package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// AlertStore persists alert records and arbitrates deduplication.
//
// Reserve is the single guard against duplicate delivery and must be an
// atomic check-and-set against the backing store: two concurrent
// reservations for the same fingerprint within the window must never both
// succeed, across processes and retries.
type AlertStore interface {
	// Reserve atomically inserts the record unless another record with the
	// same fingerprint has SentAt within window before record.SentAt.
	// Returns true if the record was inserted (the caller may deliver),
	// false if an existing record suppresses it.
	Reserve(ctx context.Context, record domain.AlertRecord, window time.Duration) (bool, error)

	// Release removes a reservation after a failed delivery so a retry is
	// not treated as a duplicate.
	Release(ctx context.Context, id string) error

	// ListRecent returns the most recent alert records, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.AlertRecord, error)
}

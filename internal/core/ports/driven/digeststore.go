package driven

import (
	"context"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// DigestStore persists digests as an audit trail. Digests are immutable.
type DigestStore interface {
	// Save stores a digest.
	Save(ctx context.Context, digest *domain.Digest) error

	// ListRecent returns the most recently generated digests, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.Digest, error)
}

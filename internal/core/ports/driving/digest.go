package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// DigestService builds and delivers periodic rollups of recent changes.
type DigestService interface {
	// Build aggregates changes detected in [start, end) into a digest and
	// persists it. Building never fails on content: over-budget bodies
	// degrade, they do not error.
	Build(ctx context.Context, start, end time.Time) (*domain.Digest, error)

	// BuildAndSend builds the digest and delivers it to the configured
	// channel. The digest is persisted even if delivery fails.
	BuildAndSend(ctx context.Context, start, end time.Time) (*domain.Digest, error)
}

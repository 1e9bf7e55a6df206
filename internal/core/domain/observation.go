package domain

import (
	"fmt"
	"time"
)

// EntityType identifies which kind of account entity an observation describes.
type EntityType string

// Recognised entity types.
const (
	// EntityStakeholder is a person in the account's organisation.
	EntityStakeholder EntityType = "stakeholder"

	// EntityProgram is a delivery program or workstream.
	EntityProgram EntityType = "program"

	// EntityRisk is an identified delivery or relationship risk.
	EntityRisk EntityType = "risk"

	// EntityTimeline is a milestone on a program timeline.
	EntityTimeline EntityType = "timeline"

	// EntityGovernance is a recorded governance decision.
	EntityGovernance EntityType = "governance"

	// EntityExternalEvent is a market or regulatory event about the account
	// (filings, M&A, executive changes).
	EntityExternalEvent EntityType = "external_event"
)

// IsValid returns true if the entity type is recognised.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityStakeholder, EntityProgram, EntityRisk,
		EntityTimeline, EntityGovernance, EntityExternalEvent:
		return true
	default:
		return false
	}
}

// Observation is a single structured fact about an entity, captured at a
// point in time from some source. Observations are produced by ingestion
// collaborators; the core never fetches them itself.
type Observation struct {
	// EntityType identifies the kind of entity observed.
	EntityType EntityType

	// EntityID uniquely identifies the entity within its type.
	EntityID string

	// Attributes holds the observed attribute state.
	Attributes map[string]any

	// Source names the system the observation came from.
	Source string

	// ObservedAt is when the observation was captured.
	ObservedAt time.Time
}

// Validate checks the observation is well-formed enough to diff.
// Malformed observations are skipped, never fatal for a batch.
func (o Observation) Validate() error {
	if o.EntityID == "" {
		return fmt.Errorf("%w: observation missing entity_id", ErrInvalidInput)
	}
	if !o.EntityType.IsValid() {
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalidInput, o.EntityType)
	}
	return nil
}

// Batch is a set of observations for exactly one (source, entity type) pair.
// Complete asserts the batch enumerates every entity of that type currently
// visible in the source; only then may absent entities be treated as removed.
type Batch struct {
	// Source names the system the batch came from.
	Source string

	// EntityType is the single entity type the batch enumerates.
	EntityType EntityType

	// Complete asserts the batch is a complete enumeration for
	// (Source, EntityType) in this cycle.
	Complete bool

	// Observations are the observed entities.
	Observations []Observation
}

// Validate checks the batch header. Individual observations are validated
// separately so one bad record does not reject the batch.
func (b Batch) Validate() error {
	if b.Source == "" {
		return fmt.Errorf("%w: batch missing source", ErrInvalidInput)
	}
	if !b.EntityType.IsValid() {
		return fmt.Errorf("%w: batch has unknown entity type %q", ErrInvalidInput, b.EntityType)
	}
	return nil
}

// Snapshot is the latest stored observation per (entity type, entity id).
// At most one current snapshot exists per key; superseded snapshots are
// retained only for audit and never re-diffed.
type Snapshot struct {
	// EntityType identifies the kind of entity.
	EntityType EntityType

	// EntityID uniquely identifies the entity within its type.
	EntityID string

	// Attributes holds the accepted attribute state.
	Attributes map[string]any

	// Source names the system the snapshot was accepted from.
	Source string

	// ObservedAt is when the underlying observation was captured.
	ObservedAt time.Time

	// UpdatedAt is when the snapshot was last written or refreshed.
	UpdatedAt time.Time
}

// Key returns the (type, id) identity of the snapshot.
func (s Snapshot) Key() EntityKey {
	return EntityKey{EntityType: s.EntityType, EntityID: s.EntityID}
}

// EntityKey identifies one entity across observations and snapshots.
type EntityKey struct {
	EntityType EntityType
	EntityID   string
}

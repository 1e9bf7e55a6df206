package domain

import "time"

// ChangeType classifies how an entity differs from its previous snapshot.
type ChangeType string

// Recognised change types.
const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// IsValid returns true if the change type is recognised.
func (t ChangeType) IsValid() bool {
	switch t {
	case ChangeAdded, ChangeRemoved, ChangeModified:
		return true
	default:
		return false
	}
}

// SignificanceLevel is the discrete importance band of a change.
type SignificanceLevel string

// Significance levels, most severe first.
const (
	LevelCritical SignificanceLevel = "CRITICAL"
	LevelHigh     SignificanceLevel = "HIGH"
	LevelMedium   SignificanceLevel = "MEDIUM"
	LevelLow      SignificanceLevel = "LOW"
)

// Level thresholds. The mapping from score to level is fixed and must not
// be bypassed anywhere a level is derived.
const (
	ThresholdCritical = 75
	ThresholdHigh     = 60
	ThresholdMedium   = 40
)

// Rank orders levels for filtering: LOW=0 up to CRITICAL=3.
// Unknown levels rank below LOW.
func (l SignificanceLevel) Rank() int {
	switch l {
	case LevelCritical:
		return 3
	case LevelHigh:
		return 2
	case LevelMedium:
		return 1
	case LevelLow:
		return 0
	default:
		return -1
	}
}

// LevelForScore maps a significance score to its level.
// This is a pure function of the score alone.
func LevelForScore(score int) SignificanceLevel {
	switch {
	case score >= ThresholdCritical:
		return LevelCritical
	case score >= ThresholdHigh:
		return LevelHigh
	case score >= ThresholdMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Change records a detected difference between two snapshots of the same
// entity, or an addition/removal.
//
// Invariants: OldAttributes is nil iff ChangeType is added; NewAttributes is
// nil iff ChangeType is removed. Score, Level and Rationale are computed once
// from the change content and never mutated afterwards; only AlertSent may be
// updated after creation.
type Change struct {
	// ID is the unique identifier for the change.
	ID string

	// ChangeType classifies the difference.
	ChangeType ChangeType

	// EntityType identifies the kind of entity that changed.
	EntityType EntityType

	// EntityID identifies the entity that changed.
	EntityID string

	// Source names the system the triggering observation came from.
	Source string

	// OldAttributes holds the previous values. For modified changes it
	// carries only the fields that changed; nil for added.
	OldAttributes map[string]any

	// NewAttributes holds the new values. For modified changes it carries
	// only the fields that changed; nil for removed.
	NewAttributes map[string]any

	// Fields lists the changed field names for modified changes, sorted.
	// Empty for added and removed.
	Fields []string

	// DetectedAt is when the diff engine detected the change.
	DetectedAt time.Time

	// Score is the significance score in [0, 100].
	Score int

	// Level is the discrete band derived from Score via LevelForScore.
	Level SignificanceLevel

	// Rationale is a short sentence explaining why the score was assigned.
	Rationale string

	// AlertSent records whether an alert was delivered for this change.
	AlertSent bool
}

// Key returns the (type, id) identity of the changed entity.
func (c Change) Key() EntityKey {
	return EntityKey{EntityType: c.EntityType, EntityID: c.EntityID}
}

// Attribute returns the named attribute from the new state, falling back to
// the old state. Renderers use it so added, modified and removed changes can
// share templates.
func (c Change) Attribute(name string) any {
	if c.NewAttributes != nil {
		if v, ok := c.NewAttributes[name]; ok {
			return v
		}
	}
	if c.OldAttributes != nil {
		if v, ok := c.OldAttributes[name]; ok {
			return v
		}
	}
	return nil
}

// AttributeString returns the named attribute as a string, or fallback when
// absent or not a string.
func (c Change) AttributeString(name, fallback string) string {
	if v, ok := c.Attribute(name).(string); ok && v != "" {
		return v
	}
	return fallback
}

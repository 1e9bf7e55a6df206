package services

import (
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// volatileFields change on every observation cycle without carrying
// information. They are excluded from comparison so re-observing identical
// state produces no change.
var volatileFields = map[string]bool{
	"last_seen":    true,
	"last_updated": true,
	"source":       true,
}

// DiffResult is the outcome of diffing one batch against stored state.
type DiffResult struct {
	// Changes are the detected differences, scored and ordered
	// deterministically.
	Changes []domain.Change

	// Accepted are the observations that passed validation, deduplicated by
	// entity id. The pipeline upserts these as the new snapshots.
	Accepted []domain.Observation

	// Skipped counts observations rejected by validation.
	Skipped int
}

// DiffEngine compares observation batches against current snapshots and
// emits scored changes. It performs no IO; the pipeline owns persistence.
type DiffEngine struct{}

// NewDiffEngine creates a diff engine.
func NewDiffEngine() *DiffEngine {
	return &DiffEngine{}
}

// Diff compares a batch against the current snapshots for the batch's
// entity type.
//
// Entities present in the batch but not in snapshots become added changes;
// entities in both with differing non-volatile attributes become a single
// modified change carrying every changed field. Existence is keyed by
// (type, id) alone, so a snapshot last written by a different source still
// counts as known. Entities in snapshots but absent from the batch become
// removed changes only when the batch asserts completeness, and only for
// snapshots this batch's source last observed: a complete enumeration says
// nothing about entities other sources are tracking. When the same entity
// id appears more than once in a batch the last observation wins.
//
// Output ordering is deterministic for identical inputs: additions and
// modifications sorted by entity id, then removals sorted by entity id.
func (e *DiffEngine) Diff(batch domain.Batch, current []domain.Snapshot, now time.Time) DiffResult {
	var result DiffResult

	observed := make(map[string]domain.Observation)
	var order []string
	for _, obs := range batch.Observations {
		if err := obs.Validate(); err != nil || obs.EntityType != batch.EntityType {
			result.Skipped++
			continue
		}
		if _, seen := observed[obs.EntityID]; !seen {
			order = append(order, obs.EntityID)
		}
		observed[obs.EntityID] = obs
	}
	sort.Strings(order)

	previous := make(map[string]domain.Snapshot, len(current))
	for _, snap := range current {
		previous[snap.EntityID] = snap
	}

	for _, id := range order {
		obs := observed[id]
		result.Accepted = append(result.Accepted, obs)

		snap, exists := previous[id]
		if !exists {
			result.Changes = append(result.Changes, e.newChange(domain.Change{
				ChangeType:    domain.ChangeAdded,
				EntityType:    batch.EntityType,
				EntityID:      id,
				Source:        batch.Source,
				NewAttributes: obs.Attributes,
				DetectedAt:    now,
			}))
			continue
		}

		fields := changedFields(snap.Attributes, obs.Attributes)
		if len(fields) == 0 {
			continue
		}

		oldVals := make(map[string]any, len(fields))
		newVals := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := snap.Attributes[f]; ok {
				oldVals[f] = v
			}
			if v, ok := obs.Attributes[f]; ok {
				newVals[f] = v
			}
		}
		result.Changes = append(result.Changes, e.newChange(domain.Change{
			ChangeType:    domain.ChangeModified,
			EntityType:    batch.EntityType,
			EntityID:      id,
			Source:        batch.Source,
			OldAttributes: oldVals,
			NewAttributes: newVals,
			Fields:        fields,
			DetectedAt:    now,
		}))
	}

	if batch.Complete {
		var removed []string
		for id, snap := range previous {
			if snap.Source != batch.Source {
				continue
			}
			if _, ok := observed[id]; !ok {
				removed = append(removed, id)
			}
		}
		sort.Strings(removed)
		for _, id := range removed {
			snap := previous[id]
			result.Changes = append(result.Changes, e.newChange(domain.Change{
				ChangeType:    domain.ChangeRemoved,
				EntityType:    batch.EntityType,
				EntityID:      id,
				Source:        batch.Source,
				OldAttributes: snap.Attributes,
				DetectedAt:    now,
			}))
		}
	}

	return result
}

// newChange assigns an id and fills the significance fields.
func (e *DiffEngine) newChange(change domain.Change) domain.Change {
	change.ID = uuid.New().String()
	change.Score, change.Rationale = ScoreChange(change)
	change.Level = domain.LevelForScore(change.Score)
	return change
}

// changedFields returns the sorted union of field names whose non-volatile
// values differ between old and new.
func changedFields(oldAttrs, newAttrs map[string]any) []string {
	names := make(map[string]bool, len(oldAttrs)+len(newAttrs))
	for name := range oldAttrs {
		names[name] = true
	}
	for name := range newAttrs {
		names[name] = true
	}

	var fields []string
	for name := range names {
		if volatileFields[name] {
			continue
		}
		oldVal, oldOK := oldAttrs[name]
		newVal, newOK := newAttrs[name]
		if oldOK != newOK || !equalValue(oldVal, newVal) {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

// equalValue compares attribute values. Numeric values are compared by
// magnitude so an int 3 observed as a float 3.0 after JSON round-tripping
// does not register as a change.
func equalValue(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

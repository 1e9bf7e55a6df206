package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep/internal/core/ports/driving"
	"github.com/custodia-labs/sitrep/internal/logger"
)

// runRetention is how many cycle runs the audit trail keeps.
const runRetention = 100

// Ensure Pipeline implements the interface.
var _ driving.IngestPipeline = (*Pipeline)(nil)

// Pipeline runs one synchronous ingestion cycle per batch: diff against
// stored snapshots, persist changes, update snapshots, alert on qualifying
// changes, and record a run for the audit trail.
//
// Every step is idempotent so the external scheduler's at-least-once
// delivery is safe: re-processing an identical batch diffs against the
// already-updated snapshots and detects nothing.
type Pipeline struct {
	snapshotStore driven.SnapshotStore
	changeStore   driven.ChangeStore
	runStore      driven.RunStore
	diff          *DiffEngine
	alerts        *AlertService

	now func() time.Time
}

// NewPipeline creates an ingest pipeline. The alert service may be nil, in
// which case changes are detected and persisted but never alerted.
func NewPipeline(
	snapshotStore driven.SnapshotStore,
	changeStore driven.ChangeStore,
	runStore driven.RunStore,
	diff *DiffEngine,
	alerts *AlertService,
) *Pipeline {
	return &Pipeline{
		snapshotStore: snapshotStore,
		changeStore:   changeStore,
		runStore:      runStore,
		diff:          diff,
		alerts:        alerts,
		now:           time.Now,
	}
}

// ProcessBatch processes a single (source, entity type) batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, batch domain.Batch) (domain.CycleResult, error) {
	started := p.now()
	run := domain.CycleRun{
		ID:         uuid.New().String(),
		Source:     batch.Source,
		EntityType: batch.EntityType,
		StartedAt:  started,
	}

	// 1. Validate the batch header. A bad header rejects the whole batch.
	if err := batch.Validate(); err != nil {
		p.recordRun(ctx, run, domain.RunFailed, domain.CycleResult{}, err)
		return domain.CycleResult{}, err
	}

	logger.Section(fmt.Sprintf("Ingest %s/%s", batch.Source, batch.EntityType))
	logger.Info("Processing batch: %d observations, complete=%v", len(batch.Observations), batch.Complete)

	// 2. Load current snapshots for the batch's entity type. The full set,
	// not just this source's: entity identity is (type, id), so an entity
	// last observed by another source must still diff as known.
	current, err := p.snapshotStore.ListByType(ctx, batch.EntityType)
	if err != nil {
		err = fmt.Errorf("list snapshots: %w", err)
		p.recordRun(ctx, run, domain.RunFailed, domain.CycleResult{}, err)
		return domain.CycleResult{}, err
	}

	// 3. Diff. Pure computation, no IO.
	diffed := p.diff.Diff(batch, current, started)
	result := domain.CycleResult{
		ChangesDetected: len(diffed.Changes),
		Skipped:         diffed.Skipped,
	}
	run.Observations = len(batch.Observations)

	// 4. Persist changes before touching snapshots so a crash between the
	// two re-detects rather than silently drops.
	for i := range diffed.Changes {
		if err := p.changeStore.Save(ctx, &diffed.Changes[i]); err != nil {
			err = fmt.Errorf("save change %s: %w", diffed.Changes[i].ID, err)
			result.ChangesDetected = i
			p.recordRun(ctx, run, domain.RunFailed, result, err)
			return result, err
		}
		logger.Debug("Change detected: %s %s %s (score %d, %s)",
			diffed.Changes[i].ChangeType, diffed.Changes[i].EntityType,
			diffed.Changes[i].EntityID, diffed.Changes[i].Score, diffed.Changes[i].Level)
	}

	// 5. Advance snapshots: upsert every accepted observation, delete
	// removed entities.
	var stepErr error
	for _, obs := range diffed.Accepted {
		snap := domain.Snapshot{
			EntityType: obs.EntityType,
			EntityID:   obs.EntityID,
			Attributes: obs.Attributes,
			Source:     obs.Source,
			ObservedAt: obs.ObservedAt,
			UpdatedAt:  started,
		}
		if err := p.snapshotStore.Upsert(ctx, snap); err != nil {
			stepErr = fmt.Errorf("upsert snapshot %s/%s: %w", obs.EntityType, obs.EntityID, err)
			break
		}
	}
	if stepErr == nil {
		for _, change := range diffed.Changes {
			if change.ChangeType != domain.ChangeRemoved {
				continue
			}
			if err := p.snapshotStore.Delete(ctx, change.Key()); err != nil {
				stepErr = fmt.Errorf("delete snapshot %s/%s: %w", change.EntityType, change.EntityID, err)
				break
			}
		}
	}
	if stepErr != nil {
		p.recordRun(ctx, run, domain.RunFailed, result, stepErr)
		return result, stepErr
	}

	// 6. Alert on qualifying changes. Alert failures degrade the run to
	// partial but never abort it: the changes are already on record.
	deliveryFailed := false
	if p.alerts != nil {
		for _, change := range diffed.Changes {
			outcome, err := p.alerts.Consider(ctx, change)
			if outcome == domain.AlertSent {
				result.AlertsSent++
			}
			if err != nil {
				deliveryFailed = true
				logger.Warn("Alert for change %s not delivered: %v", change.ID, err)
			}
		}
	}

	// 7. Record the run.
	result.Success = true
	status := domain.RunSuccess
	if result.Skipped > 0 || deliveryFailed {
		status = domain.RunPartial
	}
	p.recordRun(ctx, run, status, result, nil)

	logger.Info("Cycle complete: %d changes, %d alerts, %d skipped",
		result.ChangesDetected, result.AlertsSent, result.Skipped)
	return result, nil
}

// recordRun persists the cycle audit record and prunes old ones.
// Best-effort: audit failures are logged, never propagated.
func (p *Pipeline) recordRun(ctx context.Context, run domain.CycleRun, status domain.RunStatus, result domain.CycleResult, cause error) {
	run.FinishedAt = p.now()
	run.Status = status
	run.ChangesDetected = result.ChangesDetected
	run.AlertsSent = result.AlertsSent
	if cause != nil {
		run.Error = cause.Error()
	}
	if err := p.runStore.Record(ctx, &run); err != nil {
		logger.Warn("Failed to record cycle run: %v", err)
		return
	}
	if err := p.runStore.Prune(ctx, runRetention); err != nil {
		logger.Warn("Failed to prune cycle runs: %v", err)
	}
}

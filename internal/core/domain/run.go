package domain

import "time"

// RunStatus is the outcome classification of one ingestion cycle.
type RunStatus string

// Run statuses.
const (
	// RunSuccess means every observation in the batch was processed.
	RunSuccess RunStatus = "success"

	// RunPartial means some observations were skipped or failed but the
	// changes computed before the failure were persisted.
	RunPartial RunStatus = "partial"

	// RunFailed means the cycle aborted, typically because persistence
	// was unavailable.
	RunFailed RunStatus = "failed"
)

// CycleRun records one execution of the ingest pipeline for a batch.
// Runs are an audit trail; they are never re-processed.
type CycleRun struct {
	// ID is the unique identifier for the run.
	ID string

	// Source is the batch's source.
	Source string

	// EntityType is the batch's entity type.
	EntityType EntityType

	// StartedAt is when the cycle began.
	StartedAt time.Time

	// FinishedAt is when the cycle ended.
	FinishedAt time.Time

	// Status is the outcome classification.
	Status RunStatus

	// Observations is how many observations the batch carried.
	Observations int

	// ChangesDetected is how many changes the diff engine emitted.
	ChangesDetected int

	// AlertsSent is how many alerts were delivered.
	AlertsSent int

	// Error holds the failure detail when Status is not success.
	Error string
}

// CycleResult is the structured result returned to the caller of an ingest
// cycle. It exists for observability, not control flow.
type CycleResult struct {
	// Success is false only when the cycle aborted.
	Success bool

	// ChangesDetected counts changes emitted by the diff engine.
	ChangesDetected int

	// AlertsSent counts alerts actually delivered.
	AlertsSent int

	// Skipped counts malformed observations dropped from the batch.
	Skipped int
}

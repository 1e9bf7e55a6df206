package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
)

// ==================== Alert Store ====================

// alertStore implements driven.AlertStore.
type alertStore struct {
	store *Store
}

var _ driven.AlertStore = (*alertStore)(nil)

// Reserve atomically inserts the record unless another record with the same
// fingerprint has SentAt within the window. The conditional INSERT is a
// single statement, so SQLite's write lock makes the check-and-set atomic
// across processes.
func (s *alertStore) Reserve(ctx context.Context, record domain.AlertRecord, window time.Duration) (bool, error) {
	cutoff := record.SentAt.Add(-window).UTC()
	result, err := s.store.db.ExecContext(ctx, `
		INSERT INTO alerts (id, fingerprint, change_id, channel, sent_at)
		SELECT ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM alerts WHERE fingerprint = ? AND sent_at > ?
		)
	`, record.ID, record.Fingerprint, record.ChangeID, record.Channel, record.SentAt.UTC(),
		record.Fingerprint, cutoff)
	if err != nil {
		return false, fmt.Errorf("reserving alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking reservation: %w", err)
	}
	return affected == 1, nil
}

// Release removes a reservation after a failed delivery.
func (s *alertStore) Release(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM alerts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("releasing alert: %w", err)
	}
	return nil
}

// ListRecent returns the most recent alert records, newest first.
func (s *alertStore) ListRecent(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, fingerprint, change_id, channel, sent_at
		FROM alerts
		ORDER BY sent_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var records []domain.AlertRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var record domain.AlertRecord
		var sentAt sql.NullTime
		if err := rows.Scan(&record.ID, &record.Fingerprint, &record.ChangeID,
			&record.Channel, &sentAt); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		if sentAt.Valid {
			record.SentAt = sentAt.Time
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	return records, nil
}

// ==================== Digest Store ====================

// digestStore implements driven.DigestStore.
type digestStore struct {
	store *Store
}

var _ driven.DigestStore = (*digestStore)(nil)

// Save stores a digest.
func (s *digestStore) Save(ctx context.Context, digest *domain.Digest) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO digests (id, window_start, window_end, status, momentum, body, word_count, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, digest.ID, digest.WindowStart.UTC(), digest.WindowEnd.UTC(),
		digest.Status, digest.Momentum, digest.Body, digest.WordCount, digest.GeneratedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving digest: %w", err)
	}
	return nil
}

// ListRecent returns the most recently generated digests, newest first.
func (s *digestStore) ListRecent(ctx context.Context, limit int) ([]domain.Digest, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, window_start, window_end, status, momentum, body, word_count, generated_at
		FROM digests
		ORDER BY generated_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying digests: %w", err)
	}
	defer rows.Close()

	var digests []domain.Digest //nolint:prealloc // size unknown from query
	for rows.Next() {
		var digest domain.Digest
		var windowStart, windowEnd, generatedAt sql.NullTime
		if err := rows.Scan(&digest.ID, &windowStart, &windowEnd, &digest.Status,
			&digest.Momentum, &digest.Body, &digest.WordCount, &generatedAt); err != nil {
			return nil, fmt.Errorf("scanning digest: %w", err)
		}
		if windowStart.Valid {
			digest.WindowStart = windowStart.Time
		}
		if windowEnd.Valid {
			digest.WindowEnd = windowEnd.Time
		}
		if generatedAt.Valid {
			digest.GeneratedAt = generatedAt.Time
		}
		digests = append(digests, digest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating digests: %w", err)
	}
	return digests, nil
}

// ==================== Run Store ====================

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// Record logs a completed cycle run.
func (s *runStore) Record(ctx context.Context, run *domain.CycleRun) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cycle_runs (id, source, entity_type, started_at, finished_at,
			status, observations, changes_detected, alerts_sent, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.EntityType, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Status, run.Observations, run.ChangesDetected, run.AlertsSent, run.Error)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// ListRecent returns recent runs, most recent first.
func (s *runStore) ListRecent(ctx context.Context, limit int) ([]domain.CycleRun, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source, entity_type, started_at, finished_at,
			status, observations, changes_detected, alerts_sent, error
		FROM cycle_runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.CycleRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		var run domain.CycleRun
		var startedAt, finishedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.Source, &run.EntityType, &startedAt, &finishedAt,
			&run.Status, &run.Observations, &run.ChangesDetected, &run.AlertsSent, &run.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if startedAt.Valid {
			run.StartedAt = startedAt.Time
		}
		if finishedAt.Valid {
			run.FinishedAt = finishedAt.Time
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// Prune removes old runs beyond the retention limit.
func (s *runStore) Prune(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM cycle_runs
		WHERE id NOT IN (
			SELECT id FROM cycle_runs ORDER BY started_at DESC, id LIMIT ?
		)
	`, keep)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("pruning runs: %w", err)
	}
	return nil
}

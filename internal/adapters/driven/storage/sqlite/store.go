package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sitrep/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all state store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sitrep/data/state.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sitrep", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "state.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SnapshotStore returns a SnapshotStore interface backed by this store.
func (s *Store) SnapshotStore() driven.SnapshotStore {
	return &snapshotStore{store: s}
}

// ChangeStore returns a ChangeStore interface backed by this store.
func (s *Store) ChangeStore() driven.ChangeStore {
	return &changeStore{store: s}
}

// AlertStore returns an AlertStore interface backed by this store.
func (s *Store) AlertStore() driven.AlertStore {
	return &alertStore{store: s}
}

// DigestStore returns a DigestStore interface backed by this store.
func (s *Store) DigestStore() driven.DigestStore {
	return &digestStore{store: s}
}

// RunStore returns a RunStore interface backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Snapshot Store ====================

// snapshotStore implements driven.SnapshotStore.
type snapshotStore struct {
	store *Store
}

var _ driven.SnapshotStore = (*snapshotStore)(nil)

// Get retrieves the current snapshot for a key.
func (s *snapshotStore) Get(ctx context.Context, key domain.EntityKey) (*domain.Snapshot, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT entity_type, entity_id, attributes, source, observed_at, updated_at
		FROM snapshots WHERE entity_type = ? AND entity_id = ?
	`, key.EntityType, key.EntityID)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return snap, nil
}

// Upsert stores or replaces the current snapshot for its key. The replaced
// version, if any, is copied into snapshot_history for audit.
func (s *snapshotStore) Upsert(ctx context.Context, snapshot domain.Snapshot) error {
	attrsJSON, err := json.Marshal(snapshot.Attributes)
	if err != nil {
		return fmt.Errorf("marshalling attributes: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_history (entity_type, entity_id, attributes, source, observed_at, recorded_at)
		SELECT entity_type, entity_id, attributes, source, observed_at, ?
		FROM snapshots
		WHERE entity_type = ? AND entity_id = ? AND attributes != ?
	`, snapshot.UpdatedAt.UTC(), snapshot.EntityType, snapshot.EntityID, string(attrsJSON))
	if err != nil {
		return fmt.Errorf("archiving snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (entity_type, entity_id, attributes, source, observed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, entity_id) DO UPDATE SET
			attributes = excluded.attributes,
			source = excluded.source,
			observed_at = excluded.observed_at,
			updated_at = excluded.updated_at
	`, snapshot.EntityType, snapshot.EntityID, string(attrsJSON),
		snapshot.Source, snapshot.ObservedAt.UTC(), snapshot.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListByType returns all current snapshots for an entity type, ordered by
// entity id.
func (s *snapshotStore) ListByType(ctx context.Context, entityType domain.EntityType) ([]domain.Snapshot, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT entity_type, entity_id, attributes, source, observed_at, updated_at
		FROM snapshots
		WHERE entity_type = ?
		ORDER BY entity_id
	`, entityType)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.Snapshot //nolint:prealloc // size unknown from query
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// Delete removes the current snapshot for a key.
func (s *snapshotStore) Delete(ctx context.Context, key domain.EntityKey) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE entity_type = ? AND entity_id = ?",
		key.EntityType, key.EntityID)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	var attrsJSON string
	var observedAt, updatedAt sql.NullTime
	if err := row.Scan(&snap.EntityType, &snap.EntityID, &attrsJSON,
		&snap.Source, &observedAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(attrsJSON), &snap.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshaling attributes: %w", err)
	}
	if observedAt.Valid {
		snap.ObservedAt = observedAt.Time
	}
	if updatedAt.Valid {
		snap.UpdatedAt = updatedAt.Time
	}
	return &snap, nil
}

// ==================== Change Store ====================

// changeStore implements driven.ChangeStore.
type changeStore struct {
	store *Store
}

var _ driven.ChangeStore = (*changeStore)(nil)

// Save stores a change record.
func (s *changeStore) Save(ctx context.Context, change *domain.Change) error {
	oldJSON, err := marshalNullable(change.OldAttributes)
	if err != nil {
		return fmt.Errorf("marshalling old attributes: %w", err)
	}
	newJSON, err := marshalNullable(change.NewAttributes)
	if err != nil {
		return fmt.Errorf("marshalling new attributes: %w", err)
	}
	fieldsJSON, err := json.Marshal(change.Fields)
	if err != nil {
		return fmt.Errorf("marshalling fields: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO changes (id, change_type, entity_type, entity_id, source,
			old_attributes, new_attributes, fields, detected_at, score, level, rationale, alert_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, change.ID, change.ChangeType, change.EntityType, change.EntityID, change.Source,
		oldJSON, newJSON, string(fieldsJSON), change.DetectedAt.UTC(),
		change.Score, change.Level, change.Rationale, boolToInt(change.AlertSent))
	if err != nil {
		return fmt.Errorf("saving change: %w", err)
	}
	return nil
}

// Get retrieves a change by ID.
func (s *changeStore) Get(ctx context.Context, id string) (*domain.Change, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, change_type, entity_type, entity_id, source,
			old_attributes, new_attributes, fields, detected_at, score, level, rationale, alert_sent
		FROM changes WHERE id = ?
	`, id)

	change, err := scanChange(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return change, nil
}

// MarkAlertSent flags a change as alerted.
func (s *changeStore) MarkAlertSent(ctx context.Context, id string) error {
	result, err := s.store.db.ExecContext(ctx,
		"UPDATE changes SET alert_sent = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking change: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByWindow returns changes detected in [start, end) at or above
// minLevel, ordered by score descending then entity key.
func (s *changeStore) ListByWindow(ctx context.Context, start, end time.Time, minLevel domain.SignificanceLevel) ([]domain.Change, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, change_type, entity_type, entity_id, source,
			old_attributes, new_attributes, fields, detected_at, score, level, rationale, alert_sent
		FROM changes
		WHERE detected_at >= ? AND detected_at < ? AND score >= ?
		ORDER BY score DESC, entity_type, entity_id
	`, start.UTC(), end.UTC(), minScoreForLevel(minLevel))
	if err != nil {
		return nil, fmt.Errorf("querying changes: %w", err)
	}
	defer rows.Close()

	return collectChanges(rows)
}

// ListRecent returns the most recently detected changes, newest first.
func (s *changeStore) ListRecent(ctx context.Context, limit int) ([]domain.Change, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, change_type, entity_type, entity_id, source,
			old_attributes, new_attributes, fields, detected_at, score, level, rationale, alert_sent
		FROM changes
		ORDER BY detected_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying changes: %w", err)
	}
	defer rows.Close()

	return collectChanges(rows)
}

func collectChanges(rows *sql.Rows) ([]domain.Change, error) {
	var changes []domain.Change //nolint:prealloc // size unknown from query
	for rows.Next() {
		change, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, *change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating changes: %w", err)
	}
	return changes, nil
}

func scanChange(row rowScanner) (*domain.Change, error) {
	var change domain.Change
	var oldJSON, newJSON sql.NullString
	var fieldsJSON string
	var detectedAt sql.NullTime
	var alertSent int
	if err := row.Scan(&change.ID, &change.ChangeType, &change.EntityType, &change.EntityID,
		&change.Source, &oldJSON, &newJSON, &fieldsJSON, &detectedAt,
		&change.Score, &change.Level, &change.Rationale, &alertSent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scanning change: %w", err)
	}

	if oldJSON.Valid {
		if err := json.Unmarshal([]byte(oldJSON.String), &change.OldAttributes); err != nil {
			return nil, fmt.Errorf("unmarshaling old attributes: %w", err)
		}
	}
	if newJSON.Valid {
		if err := json.Unmarshal([]byte(newJSON.String), &change.NewAttributes); err != nil {
			return nil, fmt.Errorf("unmarshaling new attributes: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &change.Fields); err != nil {
		return nil, fmt.Errorf("unmarshaling fields: %w", err)
	}
	if detectedAt.Valid {
		change.DetectedAt = detectedAt.Time
	}
	change.AlertSent = alertSent != 0
	return &change, nil
}

// marshalNullable encodes a map as JSON, or NULL for a nil map so the
// added/removed invariant round-trips.
func marshalNullable(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// minScoreForLevel maps a level to its lower score bound.
func minScoreForLevel(level domain.SignificanceLevel) int {
	switch level {
	case domain.LevelCritical:
		return domain.ThresholdCritical
	case domain.LevelHigh:
		return domain.ThresholdHigh
	case domain.LevelMedium:
		return domain.ThresholdMedium
	default:
		return 0
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

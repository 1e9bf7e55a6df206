package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// --- Mock implementations of the driven ports for service testing ---

// mockSnapshotStore implements driven.SnapshotStore for testing.
type mockSnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[domain.EntityKey]domain.Snapshot
	listErr   error
	upsertErr error
	deleteErr error
}

func newMockSnapshotStore() *mockSnapshotStore {
	return &mockSnapshotStore{snapshots: make(map[domain.EntityKey]domain.Snapshot)}
}

func (m *mockSnapshotStore) Get(_ context.Context, key domain.EntityKey) (*domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	snapCopy := snap
	return &snapCopy, nil
}

func (m *mockSnapshotStore) Upsert(_ context.Context, snapshot domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.snapshots[snapshot.Key()] = snapshot
	return nil
}

func (m *mockSnapshotStore) ListByType(_ context.Context, entityType domain.EntityType) ([]domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Snapshot
	for _, snap := range m.snapshots {
		if snap.EntityType == entityType {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (m *mockSnapshotStore) Delete(_ context.Context, key domain.EntityKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.snapshots, key)
	return nil
}

// mockChangeStore implements driven.ChangeStore for testing.
type mockChangeStore struct {
	mu      sync.RWMutex
	changes []domain.Change
	saveErr error
	markErr error
}

func newMockChangeStore() *mockChangeStore {
	return &mockChangeStore{}
}

func (m *mockChangeStore) Save(_ context.Context, change *domain.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.changes = append(m.changes, *change)
	return nil
}

func (m *mockChangeStore) Get(_ context.Context, id string) (*domain.Change, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.changes {
		if c.ID == id {
			changeCopy := c
			return &changeCopy, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockChangeStore) MarkAlertSent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	for i := range m.changes {
		if m.changes[i].ID == id {
			m.changes[i].AlertSent = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockChangeStore) ListByWindow(_ context.Context, start, end time.Time, minLevel domain.SignificanceLevel) ([]domain.Change, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Change
	for _, c := range m.changes {
		if c.DetectedAt.Before(start) || !c.DetectedAt.Before(end) {
			continue
		}
		if c.Level.Rank() < minLevel.Rank() {
			continue
		}
		out = append(out, c)
	}
	// Score descending, as the port requires.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (m *mockChangeStore) ListRecent(_ context.Context, limit int) ([]domain.Change, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Change, 0, limit)
	for i := len(m.changes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.changes[i])
	}
	return out, nil
}

// mockAlertStore implements driven.AlertStore for testing. Reserve mirrors
// the store contract: a record with the same fingerprint inside the window
// blocks insertion.
type mockAlertStore struct {
	mu         sync.Mutex
	records    []domain.AlertRecord
	reserveErr error
	releaseErr error
}

func newMockAlertStore() *mockAlertStore {
	return &mockAlertStore{}
}

func (m *mockAlertStore) Reserve(_ context.Context, record domain.AlertRecord, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserveErr != nil {
		return false, m.reserveErr
	}
	cutoff := record.SentAt.Add(-window)
	for _, r := range m.records {
		if r.Fingerprint == record.Fingerprint && r.SentAt.After(cutoff) {
			return false, nil
		}
	}
	m.records = append(m.records, record)
	return true, nil
}

func (m *mockAlertStore) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.releaseErr != nil {
		return m.releaseErr
	}
	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockAlertStore) ListRecent(_ context.Context, limit int) ([]domain.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AlertRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

// mockDigestStore implements driven.DigestStore for testing.
type mockDigestStore struct {
	mu      sync.Mutex
	digests []domain.Digest
	saveErr error
}

func newMockDigestStore() *mockDigestStore {
	return &mockDigestStore{}
}

func (m *mockDigestStore) Save(_ context.Context, digest *domain.Digest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.digests = append(m.digests, *digest)
	return nil
}

func (m *mockDigestStore) ListRecent(_ context.Context, limit int) ([]domain.Digest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Digest, 0, limit)
	for i := len(m.digests) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.digests[i])
	}
	return out, nil
}

// mockRunStore implements driven.RunStore for testing.
type mockRunStore struct {
	mu        sync.Mutex
	runs      []domain.CycleRun
	recordErr error
}

func newMockRunStore() *mockRunStore {
	return &mockRunStore{}
}

func (m *mockRunStore) Record(_ context.Context, run *domain.CycleRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *mockRunStore) ListRecent(_ context.Context, limit int) ([]domain.CycleRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CycleRun, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *mockRunStore) Prune(_ context.Context, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) > keep {
		m.runs = m.runs[len(m.runs)-keep:]
	}
	return nil
}

// mockNotifier implements driven.Notifier for testing.
type mockNotifier struct {
	mu       sync.Mutex
	sent     []sentMessage
	sendErr  error
	failOnce bool
}

type sentMessage struct {
	channel string
	text    string
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{}
}

func (m *mockNotifier) Send(_ context.Context, channel, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		err := m.sendErr
		if m.failOnce {
			m.sendErr = nil
		}
		return err
	}
	m.sent = append(m.sent, sentMessage{channel: channel, text: text})
	return nil
}

func (m *mockNotifier) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

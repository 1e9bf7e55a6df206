package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

var (
	windowStart = time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
)

func newTestDigestBuilder(changes *mockChangeStore) (*DigestBuilder, *mockDigestStore, *mockNotifier) {
	digests := newMockDigestStore()
	notifier := newMockNotifier()
	builder := NewDigestBuilder(changes, digests, notifier, testSettings())
	builder.now = func() time.Time { return windowEnd }
	return builder, digests, notifier
}

func storedChange(t *testing.T, store *mockChangeStore, id string, c domain.Change) {
	t.Helper()
	c.ID = id
	if c.DetectedAt.IsZero() {
		c.DetectedAt = windowStart.Add(time.Hour)
	}
	c.Score, c.Rationale = ScoreChange(c)
	c.Level = domain.LevelForScore(c.Score)
	require.NoError(t, store.Save(context.Background(), &c))
}

func blockedProgram(name string) domain.Change {
	return domain.Change{
		ChangeType:    domain.ChangeModified,
		EntityType:    domain.EntityProgram,
		EntityID:      strings.ToLower(name),
		OldAttributes: map[string]any{"name": name, "status": "In Progress"},
		NewAttributes: map[string]any{"name": name, "status": "Blocked"},
		Fields:        []string{"status"},
	}
}

func TestBuild_StatusClassification(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, store *mockChangeStore)
		want  domain.AccountStatus
	}{
		{
			name: "three critical changes is Red",
			setup: func(t *testing.T, store *mockChangeStore) {
				storedChange(t, store, "c-1", blockedProgram("Apollo"))
				storedChange(t, store, "c-2", blockedProgram("Borealis"))
				storedChange(t, store, "c-3", blockedProgram("Cascade"))
			},
			want: domain.StatusRed,
		},
		{
			name: "one critical and two high is Yellow",
			setup: func(t *testing.T, store *mockChangeStore) {
				storedChange(t, store, "c-1", blockedProgram("Apollo"))
				storedChange(t, store, "c-2", domain.Change{
					ChangeType: domain.ChangeAdded, EntityType: domain.EntityExternalEvent, EntityID: "x-1",
					NewAttributes: map[string]any{"event_type": "SEC Filing (10-Q)", "title": "Q2"},
				})
				storedChange(t, store, "c-3", domain.Change{
					ChangeType: domain.ChangeAdded, EntityType: domain.EntityExternalEvent, EntityID: "x-2",
					NewAttributes: map[string]any{"event_type": "SEC Filing (10-K)", "title": "Annual"},
				})
			},
			want: domain.StatusYellow,
		},
		{
			name: "two high is Green",
			setup: func(t *testing.T, store *mockChangeStore) {
				for i := 0; i < 2; i++ {
					storedChange(t, store, fmt.Sprintf("c-%d", i), domain.Change{
						ChangeType: domain.ChangeAdded, EntityType: domain.EntityExternalEvent,
						EntityID:      fmt.Sprintf("x-%d", i),
						NewAttributes: map[string]any{"event_type": "SEC Filing (10-Q)", "title": "Q2"},
					})
				}
			},
			want: domain.StatusGreen,
		},
		{
			name:  "empty window is Green",
			setup: func(t *testing.T, store *mockChangeStore) {},
			want:  domain.StatusGreen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockChangeStore()
			tt.setup(t, store)
			builder, _, _ := newTestDigestBuilder(store)

			digest, err := builder.Build(context.Background(), windowStart, windowEnd)

			require.NoError(t, err)
			assert.Equal(t, tt.want, digest.Status)
		})
	}
}

func TestBuild_Momentum(t *testing.T) {
	store := newMockChangeStore()
	// Four negatives, zero positives: deteriorating.
	for i := 0; i < 4; i++ {
		storedChange(t, store, fmt.Sprintf("c-%d", i), domain.Change{
			ChangeType: domain.ChangeAdded, EntityType: domain.EntityRisk,
			EntityID:      fmt.Sprintf("r-%d", i),
			NewAttributes: map[string]any{"severity": "Low", "description": "gap"},
		})
	}
	builder, _, _ := newTestDigestBuilder(store)

	digest, err := builder.Build(context.Background(), windowStart, windowEnd)

	require.NoError(t, err)
	assert.Equal(t, domain.MomentumDeteriorating, digest.Momentum)
}

func TestBuild_MomentumMarginKeepsFlat(t *testing.T) {
	store := newMockChangeStore()
	// Two negatives, zero positives: inside the margin, still Flat.
	for i := 0; i < 2; i++ {
		storedChange(t, store, fmt.Sprintf("c-%d", i), domain.Change{
			ChangeType: domain.ChangeAdded, EntityType: domain.EntityRisk,
			EntityID:      fmt.Sprintf("r-%d", i),
			NewAttributes: map[string]any{"severity": "Low", "description": "gap"},
		})
	}
	builder, _, _ := newTestDigestBuilder(store)

	digest, err := builder.Build(context.Background(), windowStart, windowEnd)

	require.NoError(t, err)
	assert.Equal(t, domain.MomentumFlat, digest.Momentum)
}

func TestBuild_EmptyWindowUsesFallbacks(t *testing.T) {
	builder, digests, _ := newTestDigestBuilder(newMockChangeStore())

	digest, err := builder.Build(context.Background(), windowStart, windowEnd)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusGreen, digest.Status)
	assert.Equal(t, domain.MomentumFlat, digest.Momentum)
	assert.Contains(t, digest.Body, "No material changes this week")
	assert.Contains(t, digest.Body, "No material risks identified this week")
	assert.Contains(t, digest.Body, "No new opportunities identified this week")
	assert.Contains(t, digest.Body, "No exec action required this week")
	assert.Contains(t, digest.Body, "No relevant external signals this week")
	assert.NotContains(t, digest.Body, "No relevant external signals this week.",
		"fallback line is the bare literal")
	assert.Equal(t, len(strings.Fields(digest.Body)), digest.WordCount)

	stored, err := digests.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, digest.Body, stored[0].Body)
}

func TestBuild_SectionsFromChanges(t *testing.T) {
	store := newMockChangeStore()
	storedChange(t, store, "c-1", blockedProgram("Apollo"))
	storedChange(t, store, "c-2", domain.Change{
		ChangeType: domain.ChangeAdded, EntityType: domain.EntityExternalEvent, EntityID: "x-1",
		NewAttributes: map[string]any{"event_type": "Partnership", "title": "Joint venture with Meridian"},
	})
	builder, _, _ := newTestDigestBuilder(store)

	digest, err := builder.Build(context.Background(), windowStart, windowEnd)

	require.NoError(t, err)
	assert.Contains(t, digest.Body, "Apollo status: In Progress -> Blocked")
	assert.Contains(t, digest.Body, "Unblock Apollo")
	assert.Contains(t, digest.Body, "Leverage partnership")
	assert.LessOrEqual(t, digest.WordCount, builder.settings.DigestWordBudget)
}

func TestBuild_WordBudgetDegradation(t *testing.T) {
	store := newMockChangeStore()
	// Worst case: many verbose critical changes across every section.
	for i := 0; i < 15; i++ {
		c := blockedProgram(fmt.Sprintf("Program Delivery Workstream Number %02d With A Deliberately Long Name", i))
		c.EntityID = fmt.Sprintf("p-%d", i)
		storedChange(t, store, fmt.Sprintf("c-p-%d", i), c)
	}
	for i := 0; i < 10; i++ {
		storedChange(t, store, fmt.Sprintf("c-x-%d", i), domain.Change{
			ChangeType: domain.ChangeAdded, EntityType: domain.EntityExternalEvent,
			EntityID:      fmt.Sprintf("x-%d", i),
			NewAttributes: map[string]any{"event_type": "M&A", "title": strings.Repeat("acquisition update ", 20)},
		})
	}
	builder, _, _ := newTestDigestBuilder(store)

	digest, err := builder.Build(context.Background(), windowStart, windowEnd)

	require.NoError(t, err)
	assert.LessOrEqual(t, digest.WordCount, builder.settings.DigestWordBudget)
	assert.Equal(t, len(strings.Fields(digest.Body)), digest.WordCount)
	assert.Contains(t, digest.Body, "*What Changed:*", "the lead section survives degradation")
}

func TestBuild_Deterministic(t *testing.T) {
	store := newMockChangeStore()
	storedChange(t, store, "c-1", blockedProgram("Apollo"))
	storedChange(t, store, "c-2", domain.Change{
		ChangeType: domain.ChangeAdded, EntityType: domain.EntityRisk, EntityID: "r-1",
		NewAttributes: map[string]any{"severity": "Critical", "description": "Data migration blocked"},
	})
	builder, _, _ := newTestDigestBuilder(store)

	first, err := builder.Build(context.Background(), windowStart, windowEnd)
	require.NoError(t, err)
	second, err := builder.Build(context.Background(), windowStart, windowEnd)
	require.NoError(t, err)

	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Momentum, second.Momentum)
}

func TestBuildAndSend_DeliversBody(t *testing.T) {
	store := newMockChangeStore()
	storedChange(t, store, "c-1", blockedProgram("Apollo"))
	builder, _, notifier := newTestDigestBuilder(store)

	digest, err := builder.BuildAndSend(context.Background(), windowStart, windowEnd)

	require.NoError(t, err)
	require.Equal(t, 1, notifier.sentCount())
	assert.Equal(t, "C-ACCOUNT", notifier.sent[0].channel)
	assert.Equal(t, digest.Body, notifier.sent[0].text)
}

func TestBuildAndSend_DeliveryFailureKeepsDigest(t *testing.T) {
	store := newMockChangeStore()
	builder, digests, notifier := newTestDigestBuilder(store)
	notifier.sendErr = errors.New("mcp session closed")

	digest, err := builder.BuildAndSend(context.Background(), windowStart, windowEnd)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)
	require.NotNil(t, digest, "the built digest is returned even when delivery fails")

	stored, listErr := digests.ListRecent(context.Background(), 1)
	require.NoError(t, listErr)
	assert.Len(t, stored, 1)
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

func change(entityType domain.EntityType, changeType domain.ChangeType, old, new map[string]any, fields ...string) domain.Change {
	return domain.Change{
		ChangeType:    changeType,
		EntityType:    entityType,
		EntityID:      "e-1",
		OldAttributes: old,
		NewAttributes: new,
		Fields:        fields,
	}
}

func TestScoreChange_ExecutiveStakeholder(t *testing.T) {
	tests := []struct {
		name      string
		change    domain.Change
		wantScore int
		wantLevel domain.SignificanceLevel
	}{
		{
			name:      "new CFO added",
			change:    change(domain.EntityStakeholder, domain.ChangeAdded, nil, map[string]any{"name": "Jordan Li", "role": "CFO"}),
			wantScore: 85,
			wantLevel: domain.LevelCritical,
		},
		{
			name:      "CEO removed",
			change:    change(domain.EntityStakeholder, domain.ChangeRemoved, map[string]any{"name": "Sam Ortiz", "role": "CEO"}, nil),
			wantScore: 90,
			wantLevel: domain.LevelCritical,
		},
		{
			name:      "board member added",
			change:    change(domain.EntityStakeholder, domain.ChangeAdded, nil, map[string]any{"name": "Alex Kim", "role": "Board Member"}),
			wantScore: 80,
			wantLevel: domain.LevelCritical,
		},
		{
			name:      "rank and file added",
			change:    change(domain.EntityStakeholder, domain.ChangeAdded, nil, map[string]any{"name": "Dev One", "role": "Engineer"}),
			wantScore: 45,
			wantLevel: domain.LevelMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, rationale := ScoreChange(tt.change)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantLevel, domain.LevelForScore(score))
			assert.NotEmpty(t, rationale)
		})
	}
}

func TestScoreChange_ProgramBlocked(t *testing.T) {
	c := change(domain.EntityProgram, domain.ChangeModified,
		map[string]any{"name": "Apollo", "status": "In Progress"},
		map[string]any{"name": "Apollo", "status": "Blocked"},
		"status")

	score, rationale := ScoreChange(c)

	assert.Equal(t, 85, score)
	assert.GreaterOrEqual(t, score, 80)
	assert.LessOrEqual(t, score, 90)
	assert.Equal(t, domain.LevelCritical, domain.LevelForScore(score))
	assert.Contains(t, rationale, "Blocked")
	assert.Contains(t, rationale, "In Progress")
}

func TestScoreChange_Risks(t *testing.T) {
	critical := change(domain.EntityRisk, domain.ChangeAdded, nil,
		map[string]any{"severity": "Critical", "description": "Data migration blocked"})
	high := change(domain.EntityRisk, domain.ChangeAdded, nil,
		map[string]any{"severity": "High", "description": "Vendor delay"})
	low := change(domain.EntityRisk, domain.ChangeAdded, nil,
		map[string]any{"severity": "Low", "description": "Minor gap"})

	criticalScore, _ := ScoreChange(critical)
	highScore, _ := ScoreChange(high)
	lowScore, _ := ScoreChange(low)

	assert.Equal(t, 90, criticalScore)
	assert.Equal(t, 75, highScore)
	assert.Equal(t, 50, lowScore)
	assert.Greater(t, criticalScore, highScore)
	assert.Greater(t, highScore, lowScore)
}

func TestScoreChange_ExternalEvents(t *testing.T) {
	ma := change(domain.EntityExternalEvent, domain.ChangeAdded, nil,
		map[string]any{"event_type": "M&A", "title": "Acquisition announced"})
	filing := change(domain.EntityExternalEvent, domain.ChangeAdded, nil,
		map[string]any{"event_type": "SEC Filing (10-Q)", "title": "Quarterly report"})

	maScore, _ := ScoreChange(ma)
	filingScore, _ := ScoreChange(filing)

	assert.GreaterOrEqual(t, maScore, 85)
	assert.Greater(t, maScore, filingScore)
}

func TestScoreChange_LowSignalFieldsCapped(t *testing.T) {
	c := change(domain.EntityRisk, domain.ChangeModified,
		map[string]any{"description": "old wording"},
		map[string]any{"description": "new wording"},
		"description")

	score, _ := ScoreChange(c)

	assert.Less(t, score, domain.ThresholdMedium)
	assert.Equal(t, domain.LevelLow, domain.LevelForScore(score))
}

func TestScoreChange_MixedFieldsNotCapped(t *testing.T) {
	c := change(domain.EntityRisk, domain.ChangeModified,
		map[string]any{"description": "old", "severity": "High"},
		map[string]any{"description": "new", "severity": "Critical"},
		"description", "severity")

	score, _ := ScoreChange(c)

	assert.GreaterOrEqual(t, score, domain.ThresholdMedium)
}

func TestScoreChange_UnknownTypes(t *testing.T) {
	unknownEntity := change("satellite", domain.ChangeAdded, nil, map[string]any{})
	unknownChange := change(domain.EntityRisk, "mutated", nil, map[string]any{})

	score, rationale := ScoreChange(unknownEntity)
	assert.Equal(t, 0, score)
	assert.Equal(t, "unscored type", rationale)

	score, rationale = ScoreChange(unknownChange)
	assert.Equal(t, 0, score)
	assert.Equal(t, "unscored type", rationale)
}

func TestScoreChange_RangeAndDeterminism(t *testing.T) {
	entityTypes := []domain.EntityType{
		domain.EntityStakeholder, domain.EntityProgram, domain.EntityRisk,
		domain.EntityTimeline, domain.EntityGovernance, domain.EntityExternalEvent,
	}
	changeTypes := []domain.ChangeType{domain.ChangeAdded, domain.ChangeRemoved, domain.ChangeModified}
	attrs := map[string]any{
		"role": "CEO", "severity": "Critical", "status": "Blocked",
		"event_type": "M&A", "name": "X", "title": "Y",
	}

	for _, et := range entityTypes {
		for _, ct := range changeTypes {
			c := change(et, ct, attrs, attrs, "status", "severity", "role")
			score1, rationale1 := ScoreChange(c)
			score2, rationale2 := ScoreChange(c)

			assert.GreaterOrEqual(t, score1, 0, "%s/%s", et, ct)
			assert.LessOrEqual(t, score1, 100, "%s/%s", et, ct)
			assert.Equal(t, score1, score2)
			assert.Equal(t, rationale1, rationale2)
			assert.NotEmpty(t, rationale1)
		}
	}
}

func TestMomentumDelta(t *testing.T) {
	tests := []struct {
		name   string
		change domain.Change
		want   int
	}{
		{"risk added is negative", change(domain.EntityRisk, domain.ChangeAdded, nil, map[string]any{"severity": "High"}), -1},
		{"removal is negative", change(domain.EntityStakeholder, domain.ChangeRemoved, map[string]any{"role": "CEO"}, nil), -1},
		{"program blocked is negative", change(domain.EntityProgram, domain.ChangeModified, map[string]any{"status": "In Progress"}, map[string]any{"status": "Blocked"}, "status"), -1},
		{"program completed is positive", change(domain.EntityProgram, domain.ChangeModified, map[string]any{"status": "In Progress"}, map[string]any{"status": "Completed"}, "status"), 1},
		{"stakeholder added is positive", change(domain.EntityStakeholder, domain.ChangeAdded, nil, map[string]any{"role": "Engineer"}), 1},
		{"plain modification is neutral", change(domain.EntityGovernance, domain.ChangeModified, map[string]any{"decision": "a"}, map[string]any{"decision": "b"}, "decision"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MomentumDelta(tt.change))
		})
	}
}

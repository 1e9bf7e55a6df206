package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// Significance scoring is rule-based and deterministic: the same
// (entity type, change type, old, new) always produces the same score and
// rationale. Scoring is total - unknown combinations score zero rather
// than failing.

// Base scores by entity type.
var entityBaseScores = map[domain.EntityType]int{
	domain.EntityStakeholder:   30,
	domain.EntityProgram:       25,
	domain.EntityRisk:          35,
	domain.EntityTimeline:      20,
	domain.EntityGovernance:    25,
	domain.EntityExternalEvent: 40,
}

// Change-type deltas on top of the base score.
var changeTypeDeltas = map[domain.ChangeType]int{
	domain.ChangeAdded:    15,
	domain.ChangeRemoved:  20,
	domain.ChangeModified: 10,
}

// Stakeholder role modifiers. C-suite and board changes signal strategic
// shifts and dominate the score.
var roleModifiers = map[string]int{
	"CEO":               40,
	"CFO":               40,
	"CTO":               40,
	"COO":               40,
	"Board Chairman":    35,
	"Board Member":      35,
	"Executive Sponsor": 20,
	"Program Lead":      20,
}

// Blocking program statuses and their modifiers.
var blockingStatusModifiers = map[string]int{
	"Blocked": 50,
	"At Risk": 45,
}

// Risk severity modifiers.
var severityModifiers = map[string]int{
	"Critical": 40,
	"High":     25,
}

// External event type modifiers.
var eventTypeModifiers = map[string]int{
	"M&A":                 40,
	"Executive Change":    40,
	"SEC Filing (8-K)":    35,
	"Regulatory Action":   35,
	"SEC Filing (10-K)":   15,
	"SEC Filing (10-Q)":   15,
	"Partnership":         25,
}

// Timeline slip statuses.
var slipStatusModifiers = map[string]int{
	"Delayed": 35,
	"At Risk": 35,
}

// lowSignalFields are attributes whose edits are routine. A modification
// touching only these is capped below the MEDIUM threshold.
var lowSignalFields = map[string]bool{
	"description": true,
	"notes":       true,
	"summary":     true,
	"email":       true,
	"url":         true,
}

const unscoredRationale = "unscored type"

// unknownValue is the fallback rendered for absent attributes.
const unknownValue = "Unknown"

// ScoreChange computes the significance score and rationale for a change.
// Pure and total: every entity/change type pair is handled, unknown ones
// score zero. The caller derives the level via domain.LevelForScore.
func ScoreChange(change domain.Change) (int, string) {
	if !change.EntityType.IsValid() || !change.ChangeType.IsValid() {
		return 0, unscoredRationale
	}

	score := entityBaseScores[change.EntityType] + changeTypeDeltas[change.ChangeType]

	switch change.EntityType {
	case domain.EntityStakeholder:
		score += roleModifiers[change.AttributeString("role", "")]

	case domain.EntityProgram:
		if change.ChangeType == domain.ChangeModified && fieldChanged(change, "status") {
			score += blockingStatusModifiers[newString(change, "status")]
		}

	case domain.EntityRisk:
		score += severityModifiers[newString(change, "severity")]

	case domain.EntityTimeline:
		if change.ChangeType == domain.ChangeModified && fieldChanged(change, "status") {
			score += slipStatusModifiers[newString(change, "status")]
		}

	case domain.EntityGovernance:
		if change.ChangeType == domain.ChangeAdded {
			score += 20 // new decisions need visibility
		}

	case domain.EntityExternalEvent:
		score += eventTypeModifiers[newString(change, "event_type")]
	}

	if change.ChangeType == domain.ChangeModified && onlyLowSignalFields(change.Fields) {
		score = min(score, domain.ThresholdMedium-5)
	}

	score = min(score, 100)
	return score, rationaleFor(change, score)
}

// fieldChanged reports whether a modified change touched the named field.
func fieldChanged(change domain.Change, name string) bool {
	for _, f := range change.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// onlyLowSignalFields reports whether every changed field is routine.
func onlyLowSignalFields(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !lowSignalFields[f] {
			return false
		}
	}
	return true
}

// newString reads a string attribute from the new state only.
func newString(change domain.Change, name string) string {
	if change.NewAttributes == nil {
		return ""
	}
	v, _ := change.NewAttributes[name].(string)
	return v
}

// oldString reads a string attribute from the old state only.
func oldString(change domain.Change, name string) string {
	if change.OldAttributes == nil {
		return ""
	}
	v, _ := change.OldAttributes[name].(string)
	return v
}

// rationaleFor builds a short sentence explaining the score, referencing
// the concrete field or status involved rather than a generic template.
func rationaleFor(change domain.Change, score int) string {
	switch change.EntityType {
	case domain.EntityStakeholder:
		role := change.AttributeString("role", unknownValue)
		name := change.AttributeString("name", unknownValue)
		switch change.ChangeType {
		case domain.ChangeAdded:
			return fmt.Sprintf("%s %s added to the account organisation; leadership additions may signal strategic shifts.", role, name)
		case domain.ChangeRemoved:
			return fmt.Sprintf("%s %s removed from the account organisation; leadership departures may indicate organisational change.", role, name)
		case domain.ChangeModified:
			if fieldChanged(change, "role") {
				return fmt.Sprintf("%s role changed from %s to %s; leadership restructuring may impact programs.",
					name, orUnknown(oldString(change, "role")), orUnknown(newString(change, "role")))
			}
		}

	case domain.EntityProgram:
		name := change.AttributeString("name", unknownValue)
		if change.ChangeType == domain.ChangeModified && fieldChanged(change, "status") {
			return fmt.Sprintf("Program %s status changed from %s to %s; this may require immediate attention from program leadership.",
				name, orUnknown(oldString(change, "status")), orUnknown(newString(change, "status")))
		}

	case domain.EntityRisk:
		severity := change.AttributeString("severity", unknownValue)
		switch change.ChangeType {
		case domain.ChangeAdded:
			return fmt.Sprintf("New %s risk detected; this may require immediate attention from program leadership.", severity)
		case domain.ChangeModified:
			if fieldChanged(change, "severity") {
				return fmt.Sprintf("Risk severity changed from %s to %s; this may require immediate attention from program leadership.",
					orUnknown(oldString(change, "severity")), orUnknown(newString(change, "severity")))
			}
		}

	case domain.EntityTimeline:
		milestone := change.AttributeString("milestone", unknownValue)
		if change.ChangeType == domain.ChangeModified && fieldChanged(change, "status") {
			return fmt.Sprintf("Milestone %q status changed to %s; this may impact the delivery schedule.",
				milestone, orUnknown(newString(change, "status")))
		}

	case domain.EntityGovernance:
		decision := change.AttributeString("decision", unknownValue)
		if change.ChangeType == domain.ChangeAdded {
			return fmt.Sprintf("Governance decision recorded: %s.", decision)
		}

	case domain.EntityExternalEvent:
		eventType := change.AttributeString("event_type", unknownValue)
		title := change.AttributeString("title", unknownValue)
		return fmt.Sprintf("External event detected: %s - %s; this may affect account strategy or market position.", eventType, title)
	}

	if change.ChangeType == domain.ChangeModified && len(change.Fields) > 0 {
		return fmt.Sprintf("%s %s changed (%s); review for potential program impact.",
			titleCase(change.EntityType), change.EntityID, strings.Join(change.Fields, ", "))
	}
	return fmt.Sprintf("Material change (%s) detected in %s %s; review for potential program impact.",
		change.ChangeType, titleCase(change.EntityType), change.EntityID)
}

// orUnknown substitutes the fallback for empty attribute values.
func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}

// titleCase renders an entity type for prose ("external_event" -> "External Event").
func titleCase(t domain.EntityType) string {
	parts := strings.Split(string(t), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// MomentumDelta classifies a change as positive (+1), negative (-1) or
// neutral (0) for digest momentum, using the same taxonomy the scorer uses
// for severity.
func MomentumDelta(change domain.Change) int {
	switch {
	case change.ChangeType == domain.ChangeRemoved:
		return -1
	case change.EntityType == domain.EntityRisk && change.ChangeType == domain.ChangeAdded:
		return -1
	case change.EntityType == domain.EntityProgram && blockingStatusModifiers[newString(change, "status")] > 0:
		return -1
	case change.EntityType == domain.EntityTimeline && slipStatusModifiers[newString(change, "status")] > 0:
		return -1
	case change.EntityType == domain.EntityProgram && strings.EqualFold(newString(change, "status"), "Completed"):
		return 1
	case change.ChangeType == domain.ChangeAdded:
		return 1
	default:
		return 0
	}
}

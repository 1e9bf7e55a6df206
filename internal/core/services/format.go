package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// Rendering for outbound messages. Everything here is pure string
// assembly; delivery mechanics live behind the Notifier port.

// FormatAlert renders one change as a sectioned alert message:
// what changed, significance, why it matters, context impact, sources,
// detection time.
func FormatAlert(change domain.Change) string {
	var b strings.Builder

	b.WriteString(":rotating_light: *Situational Awareness Alert*\n\n")

	b.WriteString("*What Changed:*\n")
	b.WriteString(SummarizeChange(change))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "*Significance:* %s (Score: %d/100)\n\n", change.Level, change.Score)

	b.WriteString("*Why It Matters:*\n")
	b.WriteString(change.Rationale)
	b.WriteString("\n\n")

	if impact := contextImpact(change.EntityType); len(impact) > 0 {
		b.WriteString("*Context Impact:*\n")
		for _, area := range impact {
			fmt.Fprintf(&b, "- %s\n", area)
		}
		b.WriteString("\n")
	}

	if links := sourceLinks(change); len(links) > 0 {
		b.WriteString("*Source:*\n")
		for _, link := range links {
			fmt.Fprintf(&b, "- %s\n", link)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "*Detected:* %s", change.DetectedAt.UTC().Format("2006-01-02 15:04 UTC"))
	return b.String()
}

// SummarizeChange renders a change as one concise line, shared by alerts
// and the digest's "what changed" section.
func SummarizeChange(change domain.Change) string {
	switch change.EntityType {
	case domain.EntityStakeholder:
		name := change.AttributeString("name", unknownValue)
		role := change.AttributeString("role", unknownValue)
		switch change.ChangeType {
		case domain.ChangeAdded:
			return fmt.Sprintf("New %s added: %s", role, name)
		case domain.ChangeRemoved:
			return fmt.Sprintf("%s departed: %s", role, name)
		case domain.ChangeModified:
			if fieldChanged(change, "role") {
				return fmt.Sprintf("%s role changed to %s", name, orUnknown(newString(change, "role")))
			}
		}

	case domain.EntityProgram:
		name := change.AttributeString("name", unknownValue)
		if fieldChanged(change, "status") {
			return fmt.Sprintf("%s status: %s -> %s",
				name, orUnknown(oldString(change, "status")), orUnknown(newString(change, "status")))
		}

	case domain.EntityRisk:
		severity := change.AttributeString("severity", unknownValue)
		if change.ChangeType == domain.ChangeAdded {
			return fmt.Sprintf("New %s risk: %s", severity, truncate(change.AttributeString("description", unknownValue), 50))
		}
		if fieldChanged(change, "severity") {
			return fmt.Sprintf("Risk severity: %s -> %s",
				orUnknown(oldString(change, "severity")), orUnknown(newString(change, "severity")))
		}

	case domain.EntityExternalEvent:
		return fmt.Sprintf("%s: %s",
			change.AttributeString("event_type", unknownValue),
			change.AttributeString("title", unknownValue))

	case domain.EntityGovernance:
		if change.ChangeType == domain.ChangeAdded {
			return fmt.Sprintf("Decision recorded: %s", truncate(change.AttributeString("decision", unknownValue), 50))
		}

	case domain.EntityTimeline:
		if fieldChanged(change, "status") {
			return fmt.Sprintf("Milestone %s: %s",
				change.AttributeString("milestone", unknownValue), orUnknown(newString(change, "status")))
		}
	}

	if change.ChangeType == domain.ChangeModified && len(change.Fields) > 0 {
		field := change.Fields[0]
		return fmt.Sprintf("%s %s changed from %q to %q",
			titleCase(change.EntityType), field,
			orUnknown(oldString(change, field)), orUnknown(newString(change, field)))
	}
	return fmt.Sprintf("%s %s", titleCase(change.EntityType), change.ChangeType)
}

// contextImpact maps an entity type to the account context areas it touches.
func contextImpact(entityType domain.EntityType) []string {
	switch entityType {
	case domain.EntityStakeholder:
		return []string{"Executive Leadership", "Strategic Decision-Making"}
	case domain.EntityProgram:
		return []string{"Program Delivery", "Phase Milestones"}
	case domain.EntityRisk:
		return []string{"Program Delivery", "Timeline & Schedule"}
	case domain.EntityTimeline:
		return []string{"Project Schedule", "Milestone Delivery"}
	case domain.EntityGovernance:
		return []string{"Governance & Decision Log"}
	case domain.EntityExternalEvent:
		return []string{"Corporate Strategy", "Market Position", "Competitive Dynamics"}
	default:
		return nil
	}
}

// sourceLinks extracts source names and URLs from the change payloads,
// deduplicated, old state first.
func sourceLinks(change domain.Change) []string {
	var links []string
	seen := make(map[string]bool)
	for _, attrs := range []map[string]any{change.OldAttributes, change.NewAttributes} {
		if attrs == nil {
			continue
		}
		for _, key := range []string{"source", "url"} {
			if v, ok := attrs[key].(string); ok && v != "" && !seen[v] {
				seen[v] = true
				links = append(links, v)
			}
		}
	}
	if change.Source != "" && !seen[change.Source] {
		links = append(links, change.Source)
	}
	return links
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

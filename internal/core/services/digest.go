package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep/internal/core/ports/driving"
	"github.com/custodia-labs/sitrep/internal/logger"
)

// Ensure DigestBuilder implements the interface.
var _ driving.DigestService = (*DigestBuilder)(nil)

// DigestBuilder aggregates a window of changes into an executive digest.
//
// Building is deterministic for identical stored changes and never fails on
// content: when the rendered body exceeds the word budget, whole sections
// are dropped in a fixed order (opportunities, then external signals, then
// risks) and, as a last resort, the longest remaining section is trimmed
// bullet by bullet.
type DigestBuilder struct {
	changeStore driven.ChangeStore
	digestStore driven.DigestStore
	notifier    driven.Notifier
	settings    domain.Settings

	now func() time.Time
}

// NewDigestBuilder creates a digest builder.
func NewDigestBuilder(
	changeStore driven.ChangeStore,
	digestStore driven.DigestStore,
	notifier driven.Notifier,
	settings domain.Settings,
) *DigestBuilder {
	return &DigestBuilder{
		changeStore: changeStore,
		digestStore: digestStore,
		notifier:    notifier,
		settings:    settings,
		now:         time.Now,
	}
}

// Build aggregates changes detected in [start, end) into a digest and
// persists it.
func (d *DigestBuilder) Build(ctx context.Context, start, end time.Time) (*domain.Digest, error) {
	// 1. Load every change in the window, most significant first.
	changes, err := d.changeStore.ListByWindow(ctx, start, end, domain.LevelLow)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}

	// 2. Classify the window.
	status := accountStatus(changes)
	momentum := accountMomentum(changes)

	// 3. Assemble sections and render within the word budget.
	sections := d.buildSections(changes)
	body, words := renderWithinBudget(digestHeader(start, end, status, momentum), sections, d.settings.DigestWordBudget)

	digest := &domain.Digest{
		ID:          uuid.New().String(),
		WindowStart: start,
		WindowEnd:   end,
		Status:      status,
		Momentum:    momentum,
		Body:        body,
		WordCount:   words,
		GeneratedAt: d.now(),
	}

	// 4. Persist as audit trail.
	if err := d.digestStore.Save(ctx, digest); err != nil {
		return nil, fmt.Errorf("save digest: %w", err)
	}

	logger.Info("Digest built for [%s, %s): status=%s momentum=%s words=%d",
		start.Format(time.RFC3339), end.Format(time.RFC3339), status, momentum, words)
	return digest, nil
}

// BuildAndSend builds the digest and delivers it to the configured channel.
// The digest is persisted even when delivery fails.
func (d *DigestBuilder) BuildAndSend(ctx context.Context, start, end time.Time) (*domain.Digest, error) {
	digest, err := d.Build(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if err := d.notifier.Send(ctx, d.settings.Channel, digest.Body); err != nil {
		return digest, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	logger.Info("Digest delivered to channel %s", d.settings.Channel)
	return digest, nil
}

// accountStatus classifies window health from CRITICAL and HIGH counts:
// three or more CRITICAL changes is Red, any CRITICAL or five or more HIGH
// is Yellow, anything else Green.
func accountStatus(changes []domain.Change) domain.AccountStatus {
	var critical, high int
	for _, c := range changes {
		switch c.Level {
		case domain.LevelCritical:
			critical++
		case domain.LevelHigh:
			high++
		}
	}
	switch {
	case critical >= 3:
		return domain.StatusRed
	case critical >= 1 || high >= 5:
		return domain.StatusYellow
	default:
		return domain.StatusGreen
	}
}

// accountMomentum classifies the trend. A side must outnumber the other by
// more than two changes to move the needle off Flat.
func accountMomentum(changes []domain.Change) domain.Momentum {
	var positive, negative int
	for _, c := range changes {
		switch MomentumDelta(c) {
		case 1:
			positive++
		case -1:
			negative++
		}
	}
	switch {
	case negative > positive+2:
		return domain.MomentumDeteriorating
	case positive > negative+2:
		return domain.MomentumImproving
	default:
		return domain.MomentumFlat
	}
}

// section is one titled block of the digest body, rendered as a title line
// followed by bullet lines.
type section struct {
	title string
	lines []string

	// dropOrder > 0 marks a section removable when the body is over
	// budget; lower values are dropped first.
	dropOrder int
}

func (s section) wordCount() int {
	n := len(strings.Fields(s.title))
	for _, line := range s.lines {
		n += len(strings.Fields(line))
	}
	return n
}

// buildSections assembles the digest sections in presentation order.
// Sections with no content get a literal fallback line so an empty week
// still produces a complete digest.
func (d *DigestBuilder) buildSections(changes []domain.Change) []section {
	return []section{
		{title: "*What Changed:*", lines: d.whatChanged(changes)},
		{title: "*Key Risks:*", lines: d.keyRisks(changes), dropOrder: 3},
		{title: "*Opportunities:*", lines: d.opportunities(changes), dropOrder: 1},
		{title: "*Actions Needed:*", lines: d.actionsNeeded(changes)},
		{title: "*External Signals:*", lines: []string{d.externalSignals(changes)}, dropOrder: 2},
	}
}

// whatChanged lists the top material (HIGH or CRITICAL) changes.
func (d *DigestBuilder) whatChanged(changes []domain.Change) []string {
	var lines []string
	for _, c := range changes {
		if c.Level != domain.LevelCritical && c.Level != domain.LevelHigh {
			continue
		}
		lines = append(lines, "- "+SummarizeChange(c))
		if len(lines) == d.settings.DigestTopChanges {
			break
		}
	}
	if len(lines) == 0 {
		lines = []string{"- No material changes this week"}
	}
	return lines
}

// keyRisks lists the top risk items: risk changes, programs entering a
// blocking status, and any other CRITICAL change.
func (d *DigestBuilder) keyRisks(changes []domain.Change) []string {
	var lines []string
	for _, c := range changes {
		if !isRiskItem(c) {
			continue
		}
		lines = append(lines,
			fmt.Sprintf("%d. %s", len(lines)+1, SummarizeChange(c)),
			"   -> "+whyMatters(c))
		if len(lines)/2 == d.settings.DigestTopRisks {
			break
		}
	}
	if len(lines) == 0 {
		lines = []string{"- No material risks identified this week"}
	}
	return lines
}

func isRiskItem(c domain.Change) bool {
	if c.EntityType == domain.EntityRisk {
		return true
	}
	if c.EntityType == domain.EntityProgram && blockingStatusModifiers[newString(c, "status")] > 0 {
		return true
	}
	return c.Level == domain.LevelCritical
}

// whyMatters extracts the consequence clause from the rationale.
func whyMatters(c domain.Change) string {
	rationale := c.Rationale
	if idx := strings.Index(rationale, "; "); idx >= 0 && idx+2 < len(rationale) {
		clause := rationale[idx+2:]
		return strings.ToUpper(clause[:1]) + clause[1:]
	}
	if rationale != "" {
		return rationale
	}
	return "Requires attention due to potential program impact."
}

// opportunities surfaces positive developments: partnership and M&A events
// plus completed programs.
func (d *DigestBuilder) opportunities(changes []domain.Change) []string {
	var lines []string
	for _, c := range changes {
		var line string
		switch {
		case c.EntityType == domain.EntityExternalEvent &&
			strings.Contains(strings.ToLower(newString(c, "event_type")), "partnership"):
			line = fmt.Sprintf("- Leverage partnership: %s - potential to expand collaboration scope",
				truncate(c.AttributeString("title", unknownValue), 50))
		case c.EntityType == domain.EntityExternalEvent &&
			strings.Contains(strings.ToLower(newString(c, "event_type")), "m&a"):
			line = fmt.Sprintf("- M&A activity: %s - new leadership may accelerate adoption",
				truncate(c.AttributeString("title", unknownValue), 50))
		case c.EntityType == domain.EntityProgram &&
			strings.EqualFold(newString(c, "status"), "Completed"):
			line = fmt.Sprintf("- Expand %s scope - successful delivery builds trust for next phase",
				c.AttributeString("name", unknownValue))
		default:
			continue
		}
		lines = append(lines, line)
		if len(lines) == d.settings.DigestTopOpportunities {
			break
		}
	}
	if len(lines) == 0 {
		lines = []string{"- No new opportunities identified this week"}
	}
	return lines
}

// actionsNeeded derives concrete follow-ups from CRITICAL changes, with a
// suggested owner and due date.
func (d *DigestBuilder) actionsNeeded(changes []domain.Change) []string {
	var lines []string
	for _, c := range changes {
		if c.Level != domain.LevelCritical {
			continue
		}
		var line string
		switch c.EntityType {
		case domain.EntityStakeholder:
			if role := c.AttributeString("role", ""); roleModifiers[role] > 0 && c.ChangeType == domain.ChangeAdded {
				line = fmt.Sprintf("- Schedule intro with new %s (Account Lead, within 2 weeks)", role)
			}
		case domain.EntityProgram:
			if blockingStatusModifiers[newString(c, "status")] > 0 {
				line = fmt.Sprintf("- Unblock %s - escalate internally (Delivery Lead, this week)",
					c.AttributeString("name", unknownValue))
			}
		case domain.EntityRisk:
			if strings.EqualFold(c.AttributeString("severity", ""), "Critical") {
				line = "- Review critical risk mitigation plan (Exec Sponsor, immediate)"
			}
		}
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == d.settings.DigestTopActions {
			break
		}
	}
	if len(lines) == 0 {
		lines = []string{"- No exec action required this week"}
	}
	return lines
}

// externalSignals summarises external events in the window as one line.
func (d *DigestBuilder) externalSignals(changes []domain.Change) string {
	var ma, exec, filings, other int
	for _, c := range changes {
		if c.EntityType != domain.EntityExternalEvent {
			continue
		}
		eventType := strings.ToLower(c.AttributeString("event_type", ""))
		switch {
		case strings.Contains(eventType, "m&a"):
			ma++
		case strings.Contains(eventType, "executive"):
			exec++
		case strings.Contains(eventType, "filing"), strings.Contains(eventType, "earnings"):
			filings++
		default:
			other++
		}
	}

	var parts []string
	if ma > 0 {
		parts = append(parts, fmt.Sprintf("M&A activity detected (%d events)", ma))
	}
	if exec > 0 {
		parts = append(parts, fmt.Sprintf("%d leadership changes", exec))
	}
	if filings > 0 {
		parts = append(parts, "financial results published")
	}
	if other > 0 && len(parts) < 2 {
		parts = append(parts, fmt.Sprintf("%d other developments", other))
	}
	if len(parts) == 0 {
		return "No relevant external signals this week"
	}
	return strings.Join(parts, "; ") + ". Monitoring for strategic implications."
}

// digestHeader renders the account-snapshot block that always leads the
// digest.
func digestHeader(start, end time.Time, status domain.AccountStatus, momentum domain.Momentum) string {
	var summary string
	switch status {
	case domain.StatusRed:
		summary = "Multiple critical issues requiring immediate attention."
	case domain.StatusYellow:
		summary = "Account showing some concerning signals; monitoring high-priority changes."
	default:
		summary = "Account progressing normally with routine updates."
	}
	return fmt.Sprintf(":bar_chart: *WEEKLY EXECUTIVE DIGEST*\n*Window: %s to %s*\n\n*Account Snapshot:* %s | %s\n%s",
		start.UTC().Format("Jan 02"), end.UTC().Format("Jan 02, 2006"), status, momentum, summary)
}

// renderWithinBudget assembles the body and enforces the word budget by
// progressive degradation. It never fails; in the extreme the body is just
// the header.
func renderWithinBudget(header string, sections []section, budget int) (string, int) {
	render := func(secs []section) string {
		var b strings.Builder
		b.WriteString(header)
		for _, s := range secs {
			b.WriteString("\n\n")
			b.WriteString(s.title)
			for _, line := range s.lines {
				b.WriteString("\n")
				b.WriteString(line)
			}
		}
		return b.String()
	}
	count := func(s string) int { return len(strings.Fields(s)) }

	body := render(sections)
	if count(body) <= budget {
		return body, count(body)
	}

	// Drop removable sections in fixed order: opportunities first, then
	// external signals, then risks.
	for order := 1; order <= 3 && count(body) > budget; order++ {
		for i, s := range sections {
			if s.dropOrder == order {
				sections = append(sections[:i:i], sections[i+1:]...)
				break
			}
		}
		body = render(sections)
	}

	// Still over: trim the longest section one bullet at a time.
	for count(body) > budget {
		longest := -1
		for i, s := range sections {
			if len(s.lines) == 0 {
				continue
			}
			if longest < 0 || s.wordCount() > sections[longest].wordCount() {
				longest = i
			}
		}
		if longest < 0 {
			break
		}
		sections[longest].lines = sections[longest].lines[:len(sections[longest].lines)-1]
		if len(sections[longest].lines) == 0 {
			sections = append(sections[:longest:longest], sections[longest+1:]...)
		}
		body = render(sections)
	}

	words := count(body)
	if words > budget {
		logger.Warn("Digest header alone exceeds the %d-word budget (%d words)", budget, words)
	}
	return body, words
}

package domain

import (
	"fmt"
	"time"
)

// Settings is the explicit, typed configuration surface consumed by the core.
// It is loaded once at startup and validated before any service is built.
type Settings struct {
	// Channel is the messaging channel ID alerts and digests are sent to.
	Channel string

	// SignificanceThreshold is the minimum score that triggers an alert.
	SignificanceThreshold int

	// DedupWindow is how long an alert fingerprint suppresses re-alerting.
	DedupWindow time.Duration

	// MaxAlertsPerDay caps outbound alerts per 24 hours.
	MaxAlertsPerDay int

	// DigestWordBudget is the maximum digest body length in words.
	DigestWordBudget int

	// DigestTopChanges is how many changes the "what changed" section keeps.
	DigestTopChanges int

	// DigestTopRisks is how many risks the digest keeps.
	DigestTopRisks int

	// DigestTopOpportunities is how many opportunities the digest keeps.
	DigestTopOpportunities int

	// DigestTopActions is how many actions the digest keeps.
	DigestTopActions int
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		SignificanceThreshold:  75,
		DedupWindow:            24 * time.Hour,
		MaxAlertsPerDay:        20,
		DigestWordBudget:       250,
		DigestTopChanges:       5,
		DigestTopRisks:         3,
		DigestTopOpportunities: 3,
		DigestTopActions:       3,
	}
}

// Validate checks the settings are usable. Called once at startup.
func (s Settings) Validate() error {
	if s.SignificanceThreshold < 0 || s.SignificanceThreshold > 100 {
		return fmt.Errorf("%w: significance_threshold must be in [0,100], got %d",
			ErrInvalidSettings, s.SignificanceThreshold)
	}
	if s.DedupWindow <= 0 {
		return fmt.Errorf("%w: dedup_window must be positive, got %s",
			ErrInvalidSettings, s.DedupWindow)
	}
	if s.MaxAlertsPerDay <= 0 {
		return fmt.Errorf("%w: max_alerts_per_day must be positive, got %d",
			ErrInvalidSettings, s.MaxAlertsPerDay)
	}
	if s.DigestWordBudget <= 0 {
		return fmt.Errorf("%w: digest_word_budget must be positive, got %d",
			ErrInvalidSettings, s.DigestWordBudget)
	}
	for name, n := range map[string]int{
		"digest_top_changes":       s.DigestTopChanges,
		"digest_top_risks":         s.DigestTopRisks,
		"digest_top_opportunities": s.DigestTopOpportunities,
		"digest_top_actions":       s.DigestTopActions,
	} {
		if n <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidSettings, name, n)
		}
	}
	return nil
}

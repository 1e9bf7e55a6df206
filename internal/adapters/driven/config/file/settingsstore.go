// Package file implements the settings store over a TOML file in the
// sitrep config directory.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore loads and persists domain.Settings from a TOML file.
// Absent fields fall back to the documented defaults, so an empty or
// missing file yields DefaultSettings.
type SettingsStore struct {
	mu       sync.Mutex
	filePath string
}

// fileSettings is the TOML layout. Pointer fields distinguish "absent"
// from zero so defaults only fill real gaps.
type fileSettings struct {
	Alerting struct {
		Channel               string `toml:"channel"`
		SignificanceThreshold *int   `toml:"significance_threshold"`
		DedupWindowHours      *int   `toml:"dedup_window_hours"`
		MaxAlertsPerDay       *int   `toml:"max_alerts_per_day"`
	} `toml:"alerting"`
	Digest struct {
		WordBudget       *int `toml:"word_budget"`
		TopChanges       *int `toml:"top_changes"`
		TopRisks         *int `toml:"top_risks"`
		TopOpportunities *int `toml:"top_opportunities"`
		TopActions       *int `toml:"top_actions"`
	} `toml:"digest"`
}

// NewSettingsStore creates a TOML-based settings store.
// If configDir is empty, defaults to ~/.sitrep.
func NewSettingsStore(configDir string) (*SettingsStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".sitrep")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &SettingsStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Load reads settings from disk, applying defaults for absent fields.
// A missing file yields the defaults.
func (s *SettingsStore) Load() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := domain.DefaultSettings()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("reading %s: %w", s.filePath, err)
	}

	var parsed fileSettings
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return settings, fmt.Errorf("%w: parsing %s: %w", domain.ErrInvalidSettings, s.filePath, err)
	}

	settings.Channel = parsed.Alerting.Channel
	if parsed.Alerting.SignificanceThreshold != nil {
		settings.SignificanceThreshold = *parsed.Alerting.SignificanceThreshold
	}
	if parsed.Alerting.DedupWindowHours != nil {
		settings.DedupWindow = time.Duration(*parsed.Alerting.DedupWindowHours) * time.Hour
	}
	if parsed.Alerting.MaxAlertsPerDay != nil {
		settings.MaxAlertsPerDay = *parsed.Alerting.MaxAlertsPerDay
	}
	if parsed.Digest.WordBudget != nil {
		settings.DigestWordBudget = *parsed.Digest.WordBudget
	}
	if parsed.Digest.TopChanges != nil {
		settings.DigestTopChanges = *parsed.Digest.TopChanges
	}
	if parsed.Digest.TopRisks != nil {
		settings.DigestTopRisks = *parsed.Digest.TopRisks
	}
	if parsed.Digest.TopOpportunities != nil {
		settings.DigestTopOpportunities = *parsed.Digest.TopOpportunities
	}
	if parsed.Digest.TopActions != nil {
		settings.DigestTopActions = *parsed.Digest.TopActions
	}

	return settings, nil
}

// Save persists settings to disk.
func (s *SettingsStore) Save(settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out fileSettings
	out.Alerting.Channel = settings.Channel
	out.Alerting.SignificanceThreshold = &settings.SignificanceThreshold
	hours := int(settings.DedupWindow / time.Hour)
	out.Alerting.DedupWindowHours = &hours
	out.Alerting.MaxAlertsPerDay = &settings.MaxAlertsPerDay
	out.Digest.WordBudget = &settings.DigestWordBudget
	out.Digest.TopChanges = &settings.DigestTopChanges
	out.Digest.TopRisks = &settings.DigestTopRisks
	out.Digest.TopOpportunities = &settings.DigestTopOpportunities
	out.Digest.TopActions = &settings.DigestTopActions

	data, err := toml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}

	// Write with restricted permissions
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", s.filePath, err)
	}
	return nil
}

// Path returns the configuration file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}

package driven

import "github.com/custodia-labs/sitrep/internal/core/domain"

// SettingsStore loads and persists the typed application settings.
type SettingsStore interface {
	// Load reads settings, applying defaults for absent fields.
	Load() (domain.Settings, error)

	// Save persists settings.
	Save(settings domain.Settings) error

	// Path returns the backing file path, for diagnostics.
	Path() string
}

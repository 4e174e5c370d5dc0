package driving

import "github.com/custodia-labs/fusionqa/internal/core/domain"

// SettingsService reads and updates application configuration.
type SettingsService interface {
	// Get returns the effective settings: defaults overlaid with stored
	// values. Invalid stored values fail with domain.ErrInvalidInput.
	Get() (*domain.AppSettings, error)

	// Set validates and stores a single dot-notation key.
	Set(key, value string) error

	// Keys lists every recognised key.
	Keys() []string
}

package driving

import "github.com/custodia-labs/coworker/internal/core/domain"

// SettingsService reads and updates application settings.
type SettingsService interface {
	// Get resolves settings from config file, environment and defaults.
	Get() (*domain.AppSettings, error)

	// Set stores one configuration key.
	Set(key string, value any) error

	// ConfigPath returns the backing configuration file.
	ConfigPath() string

	// Keys lists every recognised configuration key.
	Keys() []string
}

package driving

import (
	"context"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// SettingsService resolves application settings.
type SettingsService interface {
	// Get returns the effective settings: defaults overlaid with every key
	// present in the config store (which the caller may have seeded from
	// the environment).
	Get() (*domain.AppSettings, error)

	// Save persists application settings to the config file.
	Save(settings *domain.AppSettings) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Validate checks the effective settings for consistency.
	Validate() error

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig(ctx context.Context) error
}

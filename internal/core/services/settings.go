package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyDataDir          = "data_dir"
	KeyEmbedProvider    = "embedding.provider"
	KeyEmbedModel       = "embedding.model"
	KeyEmbedBaseURL     = "embedding.base_url"
	KeyEmbedAPIKey      = "embedding.api_key"
	KeyEmbedDimensions  = "embedding.dimensions"
	KeyEmbedTimeout     = "embedding.timeout"
	KeyEmbedRPS         = "embedding.requests_per_second"
	KeyEmbedBurst       = "embedding.burst"
	KeyVectorBackend    = "vector.backend"
	KeyVectorDSN        = "vector.dsn"
	KeyVectorPath       = "vector.path"
	KeyVectorCollection = "vector.collection"
	KeyVectorDimensions = "vector.dimensions"
	KeyVectorDistance   = "vector.distance"
	KeyVectorTimeout    = "vector.timeout"
	KeyIndexBatchSize   = "index.batch_size"
	KeyIndexRecency     = "index.recency_pool"
	KeyWatchWorkers     = "watch.workers"
	KeyWatchExtensions  = "watch.extensions"
	KeyWatchPrune       = "watch.prune_stale"
	KeyWatchFallbackIDs = "watch.fallback_ids"
	KeyMetricsPort      = "metrics.port"
	KeyLogVerbose       = "log.verbose"
	KeyLogFormat        = "log.format"
)

// SettingsService resolves application settings from a config store.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
// The aiValidator is optional; without it ValidateEmbeddingConfig is a no-op.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(defaults.Embedding.Provider)
	model := s.configStore.GetString(KeyEmbedModel)
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	vectorDims := s.getInt(KeyVectorDimensions, defaults.Vector.Dimensions)

	settings := &domain.AppSettings{
		DataDir: s.getString(KeyDataDir, defaults.DataDir),
		Embedding: domain.EmbeddingSettings{
			Provider: provider,
			Model:    model,
			BaseURL:  s.configStore.GetString(KeyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(KeyEmbedAPIKey),
			// The requested output size follows the collection unless set explicitly.
			Dimensions:        s.getInt(KeyEmbedDimensions, vectorDims),
			Timeout:           s.getDuration(KeyEmbedTimeout, defaults.Embedding.Timeout),
			RequestsPerSecond: s.configStore.GetFloat(KeyEmbedRPS),
			Burst:             s.getInt(KeyEmbedBurst, defaults.Embedding.Burst),
		},
		Vector: domain.VectorSettings{
			Backend:    domain.VectorBackend(s.getString(KeyVectorBackend, defaults.Vector.Backend.String())),
			DSN:        s.configStore.GetString(KeyVectorDSN),
			Path:       s.configStore.GetString(KeyVectorPath),
			Collection: s.getString(KeyVectorCollection, defaults.Vector.Collection),
			Dimensions: vectorDims,
			Distance:   domain.Distance(s.getString(KeyVectorDistance, defaults.Vector.Distance.String())),
			Timeout:    s.getDuration(KeyVectorTimeout, defaults.Vector.Timeout),
		},
		Index: domain.IndexSettings{
			BatchSize:   s.getInt(KeyIndexBatchSize, defaults.Index.BatchSize),
			RecencyPool: s.getInt(KeyIndexRecency, defaults.Index.RecencyPool),
		},
		Watch: domain.WatchSettings{
			Workers:     s.getInt(KeyWatchWorkers, defaults.Watch.Workers),
			Extensions:  s.getStringSlice(KeyWatchExtensions, defaults.Watch.Extensions),
			PruneStale:  s.getBool(KeyWatchPrune, defaults.Watch.PruneStale),
			FallbackIDs: domain.FallbackPolicy(s.getString(KeyWatchFallbackIDs, string(defaults.Watch.FallbackIDs))),
		},
		Log: domain.LogSettings{
			Verbose: s.getBool(KeyLogVerbose, defaults.Log.Verbose),
			Format:  s.getString(KeyLogFormat, defaults.Log.Format),
		},
		MetricsPort: s.configStore.GetInt(KeyMetricsPort),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	entries := []struct {
		key   string
		value any
	}{
		{KeyDataDir, settings.DataDir},
		{KeyEmbedProvider, settings.Embedding.Provider.String()},
		{KeyEmbedModel, settings.Embedding.Model},
		{KeyEmbedBaseURL, settings.Embedding.BaseURL},
		{KeyEmbedDimensions, settings.Embedding.Dimensions},
		{KeyEmbedTimeout, settings.Embedding.Timeout.String()},
		{KeyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{KeyEmbedBurst, settings.Embedding.Burst},
		{KeyVectorBackend, settings.Vector.Backend.String()},
		{KeyVectorPath, settings.Vector.Path},
		{KeyVectorCollection, settings.Vector.Collection},
		{KeyVectorDimensions, settings.Vector.Dimensions},
		{KeyVectorDistance, settings.Vector.Distance.String()},
		{KeyVectorTimeout, settings.Vector.Timeout.String()},
		{KeyIndexBatchSize, settings.Index.BatchSize},
		{KeyIndexRecency, settings.Index.RecencyPool},
		{KeyWatchWorkers, settings.Watch.Workers},
		{KeyWatchExtensions, settings.Watch.Extensions},
		{KeyWatchPrune, settings.Watch.PruneStale},
		{KeyWatchFallbackIDs, string(settings.Watch.FallbackIDs)},
		{KeyMetricsPort, settings.MetricsPort},
		{KeyLogVerbose, settings.Log.Verbose},
		{KeyLogFormat, settings.Log.Format},
	}

	for _, e := range entries {
		if err := s.configStore.Set(e.key, e.value); err != nil {
			return fmt.Errorf("save %s: %w", e.key, err)
		}
	}

	// Secrets are only written when set, so env-provided keys stay out of the file.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(KeyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", KeyEmbedAPIKey, err)
		}
	}
	if settings.Vector.DSN != "" {
		if err := s.configStore.Set(KeyVectorDSN, settings.Vector.DSN); err != nil {
			return fmt.Errorf("save %s: %w", KeyVectorDSN, err)
		}
	}

	return s.configStore.Save()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Validate checks the effective settings for consistency.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: %s requires an API key", domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if settings.Vector.Backend == domain.VectorBackendPostgres && settings.Vector.DSN == "" {
		return fmt.Errorf("%w: postgres backend requires vector.dsn or DATABASE_URL", domain.ErrVectorStoreUnavailable)
	}
	return nil
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := strings.TrimSpace(s.configStore.GetString(key))
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetDuration(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(KeyEmbedProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(strings.ToLower(val))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderVoyage is the Voyage AI cloud API.
	AIProviderVoyage AIProvider = "voyage"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderVoyage, AIProviderOpenAI, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderVoyage
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderVoyage:
		return "Voyage AI (cloud)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies the vector database implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendPostgres is PostgreSQL with the pgvector extension.
	VectorBackendPostgres VectorBackend = "postgres"

	// VectorBackendSQLite is a single-file local store.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendMemory keeps points in process memory only.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendPostgres, VectorBackendSQLite, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// FallbackPolicy selects how chunks without a natural key get an internal id.
type FallbackPolicy string

// Available fallback policies.
const (
	// FallbackContent derives the id from the event's type, date and text.
	// It survives reordering of the source collection.
	FallbackContent FallbackPolicy = "content"

	// FallbackPosition uses "v{index}", "l{index}", ... scoped per event type.
	// It is NOT stable when the source collection is reordered or trimmed.
	FallbackPosition FallbackPolicy = "position"
)

// IsValid returns true if the policy is recognised.
func (f FallbackPolicy) IsValid() bool {
	return f == FallbackContent || f == FallbackPosition
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key (for Voyage and OpenAI).
	APIKey string

	// Dimensions is the requested output dimensionality.
	Dimensions int

	// Timeout bounds each embedding request.
	Timeout time.Duration

	// RequestsPerSecond limits the request rate. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the token bucket size when limiting is enabled.
	Burst int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// VectorSettings holds vector database configuration.
type VectorSettings struct {
	// Backend selects the vector database.
	Backend VectorBackend

	// DSN is the PostgreSQL connection string.
	DSN string

	// Path is the SQLite database file.
	Path string

	// Collection is the collection (table) name.
	Collection string

	// Dimensions is the embedding vector size of the collection.
	Dimensions int

	// Distance is the similarity metric.
	Distance Distance

	// Timeout bounds each upsert, query or delete call.
	Timeout time.Duration
}

// IndexSettings tunes the indexing and retrieval behaviour.
type IndexSettings struct {
	// BatchSize is the number of chunks embedded and written per call.
	BatchSize int

	// RecencyPool multiplies the limit when ordering by date, so that
	// recent events just outside the top-k by similarity are considered.
	RecencyPool int
}

// WatchSettings configures the change-detection watcher.
type WatchSettings struct {
	// Workers is the number of units processed concurrently.
	// A given unit is always handled by the same worker.
	Workers int

	// Extensions lists record file extensions, with leading dot.
	Extensions []string

	// PruneStale deletes points of events no longer present in a record.
	PruneStale bool

	// FallbackIDs selects the internal id policy for events without a key.
	FallbackIDs FallbackPolicy
}

// LogSettings configures logging.
type LogSettings struct {
	// Verbose enables debug output.
	Verbose bool

	// Format is "text" or "json".
	Format string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// DataDir is the directory holding one record file per patient.
	DataDir string

	Embedding EmbeddingSettings
	Vector    VectorSettings
	Index     IndexSettings
	Watch     WatchSettings
	Log       LogSettings

	// MetricsPort serves Prometheus metrics when greater than zero.
	MetricsPort int
}

// DefaultAppSettings returns settings with sensible defaults.
// The API key is left empty; it normally comes from the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		DataDir: "data",
		Embedding: EmbeddingSettings{
			Provider:   AIProviderVoyage,
			Model:      DefaultEmbeddingModels()[AIProviderVoyage],
			Dimensions: 512,
			Timeout:    30 * time.Second,
			Burst:      1,
		},
		Vector: VectorSettings{
			Backend:    VectorBackendPostgres,
			Collection: "medical_records",
			Dimensions: 512,
			Distance:   DistanceCosine,
			Timeout:    30 * time.Second,
		},
		Index: IndexSettings{
			BatchSize:   32,
			RecencyPool: 3,
		},
		Watch: WatchSettings{
			Workers:     1,
			Extensions:  []string{".json", ".yaml", ".yml"},
			FallbackIDs: FallbackContent,
		},
		Log: LogSettings{
			Format: "text",
		},
	}
}

// Validate checks settings that would otherwise fail deep inside an adapter.
func (s AppSettings) Validate() error {
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unsupported embedding provider %q", ErrInvalidInput, s.Embedding.Provider)
	}
	if !s.Vector.Backend.IsValid() {
		return fmt.Errorf("%w: unsupported vector backend %q", ErrInvalidInput, s.Vector.Backend)
	}
	if !s.Vector.Distance.IsValid() {
		return fmt.Errorf("%w: unsupported distance %q", ErrInvalidInput, s.Vector.Distance)
	}
	if s.Vector.Dimensions <= 0 {
		return fmt.Errorf("%w: vector dimensions must be positive", ErrInvalidInput)
	}
	if s.Vector.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	if s.Embedding.Dimensions > 0 && s.Embedding.Dimensions != s.Vector.Dimensions {
		return fmt.Errorf("%w: embedding dimensions %d do not match collection dimensions %d",
			ErrInvalidInput, s.Embedding.Dimensions, s.Vector.Dimensions)
	}
	if !s.Watch.FallbackIDs.IsValid() {
		return fmt.Errorf("%w: unsupported fallback id policy %q", ErrInvalidInput, s.Watch.FallbackIDs)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderVoyage,
		AIProviderOpenAI,
		AIProviderOllama,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderVoyage: "voyage-3.5",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderOllama: "nomic-embed-text",
	}
}

// EmbeddingDimensions returns the native vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Voyage models
		"voyage-3.5":      1024,
		"voyage-3.5-lite": 1024,
		"voyage-3-large":  1024,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

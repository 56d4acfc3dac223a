// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driven/embedding/openai"
	"github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driven/embedding/ratelimit"
	voyageembed "github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driven/embedding/voyage"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: set the API key for %s (%s)",
			domain.ErrEmbeddingUnavailable, providerName(settings), apiKeyEnv(settings))
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	// Validate connectivity.
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, settings)
	if err != nil {
		return err
	}
	return svc.Close()
}

// CreateEmbeddingService creates the embedding service selected by settings,
// wrapped with rate limiting.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("embedding provider not configured")
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderVoyage:
		svc, err = voyageembed.NewEmbeddingService(voyageembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderOpenAI:
		svc, err = openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	return ratelimit.New(svc, ratelimit.Config{
		RequestsPerSecond: settings.RequestsPerSecond,
		Burst:             settings.Burst,
	}), nil
}

// createOllamaEmbedding creates an Ollama embedding service.
// Local models have a fixed output size, so the configured dimensions
// only apply to models not in the known table.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = settings.Dimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		Dimensions: dimensions,
	})
}

func providerName(settings *domain.EmbeddingSettings) string {
	if settings == nil || settings.Provider == "" {
		return "embedding provider"
	}
	return settings.Provider.Description()
}

func apiKeyEnv(settings *domain.EmbeddingSettings) string {
	if settings != nil && settings.Provider == domain.AIProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "VOYAGE_API_KEY"
}

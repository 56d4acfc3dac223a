package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/services"
)

// Environment variables read on start.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvVoyageKey   = "VOYAGE_API_KEY"
	EnvDatabaseURL = "DATABASE_URL"
	EnvDataDir     = "HULI_DATA_DIR"
)

// defaultEnvFile is loaded when present and no other file is named.
const defaultEnvFile = ".env"

// LoadEnvFile loads variables from path without overriding the process
// environment. An empty path loads ./.env when it exists.
func LoadEnvFile(path string) error {
	if path == "" {
		err := godotenv.Load(defaultEnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", defaultEnvFile, err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment values onto the config store. The API key
// variable used is the one of the configured provider.
func ApplyEnv(store driven.ConfigStore, getenv func(string) string) error {
	provider := domain.AIProvider(strings.ToLower(store.GetString(services.KeyEmbedProvider)))
	if provider == "" {
		provider = domain.DefaultAppSettings().Embedding.Provider
	}

	overrides := map[string]string{
		services.KeyVectorDSN: getenv(EnvDatabaseURL),
		services.KeyDataDir:   getenv(EnvDataDir),
	}
	switch provider {
	case domain.AIProviderOpenAI:
		overrides[services.KeyEmbedAPIKey] = getenv(EnvOpenAIKey)
	case domain.AIProviderVoyage:
		overrides[services.KeyEmbedAPIKey] = getenv(EnvVoyageKey)
	}

	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := store.Set(key, value); err != nil {
			return fmt.Errorf("applying %s: %w", key, err)
		}
	}
	return nil
}

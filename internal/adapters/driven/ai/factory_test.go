package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.EmbeddingSettings
		wantErr   bool
		wantModel string
		wantDims  int
	}{
		{
			name:     "nil settings",
			settings: nil,
			wantErr:  true,
		},
		{
			name:     "voyage without key",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderVoyage},
			wantErr:  true,
		},
		{
			name: "voyage",
			settings: &domain.EmbeddingSettings{
				Provider:   domain.AIProviderVoyage,
				APIKey:     "pa-test",
				Model:      "voyage-3.5",
				Dimensions: 512,
			},
			wantModel: "voyage-3.5",
			wantDims:  512,
		},
		{
			name: "openai",
			settings: &domain.EmbeddingSettings{
				Provider:   domain.AIProviderOpenAI,
				APIKey:     "sk-test",
				Model:      "text-embedding-3-small",
				Dimensions: 512,
			},
			wantModel: "text-embedding-3-small",
			wantDims:  512,
		},
		{
			name: "ollama known model keeps native size",
			settings: &domain.EmbeddingSettings{
				Provider:   domain.AIProviderOllama,
				Model:      "nomic-embed-text",
				Dimensions: 512,
			},
			wantModel: "nomic-embed-text",
			wantDims:  768,
		},
		{
			name: "ollama unknown model uses configured size",
			settings: &domain.EmbeddingSettings{
				Provider:   domain.AIProviderOllama,
				Model:      "bge-m3",
				Dimensions: 1024,
			},
			wantModel: "bge-m3",
			wantDims:  1024,
		},
		{
			name:     "unknown provider",
			settings: &domain.EmbeddingSettings{Provider: "cohere", APIKey: "x"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestCreateAndValidateEmbeddingService_NotConfigured(t *testing.T) {
	_, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
	})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestCreateAndValidateEmbeddingService_Reachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	svc, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
		Model:    "nomic-embed-text",
	})

	require.NoError(t, err)
	assert.NoError(t, svc.Close())
}

func TestCreateAndValidateEmbeddingService_Unreachable(t *testing.T) {
	_, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  "http://127.0.0.1:1",
		Model:    "nomic-embed-text",
	})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

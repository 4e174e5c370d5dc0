package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// fakeOllama answers the endpoints the Ollama adapters use.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/embed":
			var req struct {
				Input []string `json:"input"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			out := make([][]float64, len(req.Input))
			for i := range out {
				out[i] = []float64{1, 0, 0}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		assert.NoError(t, result.Close())
	})

	t.Run("close with all services", func(t *testing.T) {
		result := &InitResult{
			EmbeddingService: createOllamaEmbedding(&domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				Model:    "nomic-embed-text",
			}),
			LLMService: createOllamaLLM(&domain.LLMSettings{
				Provider: domain.AIProviderOllama,
				Model:    "llama3.2",
			}),
		}
		assert.NoError(t, result.Close())
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name    string
		s       *domain.EmbeddingSettings
		wantNil bool
		wantErr bool
	}{
		{name: "nil settings returns nil", s: nil, wantNil: true},
		{name: "unconfigured settings returns nil", s: &domain.EmbeddingSettings{}, wantNil: true},
		{
			name: "ollama provider creates service",
			s:    &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
		},
		{
			name: "openai provider creates service",
			s: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name:    "anthropic is not an embedding provider",
			s:       &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "test-key"},
			wantNil: true,
		},
		{
			name:    "openai without key is not configured",
			s:       &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.s)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			defer svc.Close()
			_, cached := svc.(*CachedEmbedding)
			assert.True(t, cached)
		})
	}
}

func TestCreateEmbeddingService_Dimensions(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "mxbai-embed-large",
	})
	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, 1024, svc.Dimensions())

	svc2, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider:   domain.AIProviderOllama,
		Model:      "custom-model-unknown",
		Dimensions: 256,
	})
	require.NoError(t, err)
	defer svc2.Close()
	assert.Equal(t, 256, svc2.Dimensions())
}

func TestCreateEmbeddingService_RateLimited(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider:          domain.AIProviderOllama,
		Model:             "nomic-embed-text",
		RequestsPerSecond: 2,
	})
	require.NoError(t, err)
	defer svc.Close()

	cached, ok := svc.(*CachedEmbedding)
	require.True(t, ok)
	_, limited := cached.EmbeddingService.(*RateLimitedEmbedding)
	assert.True(t, limited)
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name    string
		s       *domain.LLMSettings
		wantNil bool
		wantErr bool
	}{
		{name: "nil settings returns nil", s: nil, wantNil: true},
		{name: "unconfigured settings returns nil", s: &domain.LLMSettings{}, wantNil: true},
		{
			name: "ollama provider creates service",
			s:    &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
		},
		{
			name: "openai provider creates service",
			s:    &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "test-key", Model: "gpt-4o-mini"},
		},
		{
			name: "anthropic provider creates service",
			s:    &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "test-key"},
		},
		{
			name:    "unknown provider is not configured",
			s:       &domain.LLMSettings{Provider: "unknown", APIKey: "test-key"},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.s)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.NoError(t, svc.Close())
		})
	}
}

func TestCreateLLMService_RateLimited(t *testing.T) {
	svc, err := CreateLLMService(&domain.LLMSettings{
		Provider:          domain.AIProviderOllama,
		RequestsPerSecond: 1,
	})
	require.NoError(t, err)
	_, limited := svc.(*RateLimitedLLM)
	assert.True(t, limited)
}

func TestCreateAndValidate_Reachable(t *testing.T) {
	srv := fakeOllama(t)
	ctx := context.Background()

	emb, err := CreateAndValidateEmbeddingService(ctx, &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
		Model:    "nomic-embed-text",
	})
	require.NoError(t, err)
	require.NotNil(t, emb)
	defer emb.Close()

	llm, err := CreateAndValidateLLMService(ctx, &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})
	require.NoError(t, err)
	require.NotNil(t, llm)
	defer llm.Close()
}

func TestCreateAndValidate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	ctx := context.Background()

	emb, err := CreateAndValidateEmbeddingService(ctx, &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})
	require.Error(t, err)
	assert.Nil(t, emb)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	llm, err := CreateAndValidateLLMService(ctx, &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})
	require.Error(t, err)
	assert.Nil(t, llm)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestValidateConfig(t *testing.T) {
	srv := fakeOllama(t)
	ctx := context.Background()

	assert.NoError(t, ValidateEmbeddingConfig(ctx, nil))
	assert.NoError(t, ValidateLLMConfig(ctx, &domain.LLMSettings{}))
	assert.NoError(t, ValidateEmbeddingConfig(ctx, &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	}))
	assert.NoError(t, ValidateLLMConfig(ctx, &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	}))
}

func TestInit(t *testing.T) {
	srv := fakeOllama(t)

	t.Run("both reachable", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding.BaseURL = srv.URL
		settings.LLM.BaseURL = srv.URL

		result, err := Init(context.Background(), settings)
		require.NoError(t, err)
		defer result.Close()
		assert.NotNil(t, result.EmbeddingService)
		assert.NotNil(t, result.LLMService)
		assert.Empty(t, result.Warnings)
	})

	t.Run("LLM unreachable degrades", func(t *testing.T) {
		down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer down.Close()

		settings := domain.DefaultAppSettings()
		settings.Embedding.BaseURL = srv.URL
		settings.LLM.BaseURL = down.URL

		result, err := Init(context.Background(), settings)
		require.NoError(t, err)
		defer result.Close()
		assert.NotNil(t, result.EmbeddingService)
		assert.Nil(t, result.LLMService)
		assert.Len(t, result.Warnings, 1)
	})

	t.Run("no LLM configured", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding.BaseURL = srv.URL
		settings.LLM = domain.LLMSettings{}

		result, err := Init(context.Background(), settings)
		require.NoError(t, err)
		defer result.Close()
		assert.Nil(t, result.LLMService)
		assert.Len(t, result.Warnings, 1)
	})

	t.Run("embedding missing is fatal", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding = domain.EmbeddingSettings{}

		_, err := Init(context.Background(), settings)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

func TestSettingsService_Get_Defaults(t *testing.T) {
	svc := NewSettingsService(newMockConfigStore(nil))

	got, err := svc.Get()
	require.NoError(t, err)

	want := domain.DefaultAppSettings()
	assert.Equal(t, want, *got)
}

func TestSettingsService_Get_StoredValues(t *testing.T) {
	store := newMockConfigStore(map[string]any{
		"embedding.provider":      "openai",
		"embedding.api_key":       "sk-test",
		"llm.provider":            "anthropic",
		"llm.call_timeout":        "15s",
		"llm.requests_per_second": 1.5,
		"graph.backend":           "neo4j",
		"graph.max_hops":          3,
		"vector.backend":          "pgvector",
		"vector.postgres_dsn":     "postgres://localhost/fusionqa",
		"chunker.unit":            "tokens",
		"chunker.size":            400,
		"chunker.overlap":         50,
		"qa.include_graph":        false,
		"server.addr":             ":9090",
	})
	svc := NewSettingsService(store)

	got, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, got.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", got.Embedding.Model, "model follows provider")
	assert.Equal(t, "claude-3-5-sonnet-latest", got.LLM.Model)
	assert.Equal(t, 15*time.Second, got.LLM.CallTimeout)
	assert.InDelta(t, 1.5, got.LLM.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.BackendNeo4j, got.Graph.Backend)
	assert.Equal(t, 3, got.Graph.MaxHops)
	assert.Equal(t, domain.DefaultMaxEdges, got.Graph.MaxEdges)
	assert.Equal(t, domain.BackendPGVector, got.Vector.Backend)
	assert.Equal(t, "postgres://localhost/fusionqa", got.Vector.PostgresDSN)
	assert.Equal(t, domain.ChunkerSettings{Size: 400, Overlap: 50, Unit: domain.ChunkUnitTokens}, got.Chunker)
	assert.False(t, got.QA.IncludeGraph)
	assert.Equal(t, ":9090", got.Server.Addr)
}

func TestSettingsService_Get_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{"graph backend", map[string]any{"graph.backend": "pgvector"}},
		{"vector backend", map[string]any{"vector.backend": "neo4j"}},
		{"chunk unit", map[string]any{"chunker.unit": "words"}},
		{"overlap too large", map[string]any{"chunker.size": 100, "chunker.overlap": 100}},
		{"n_results", map[string]any{"qa.n_results": 50}},
		{"llm provider", map[string]any{"llm.provider": "mystery"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSettingsService(newMockConfigStore(tt.values)).Get()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_Set(t *testing.T) {
	store := newMockConfigStore(nil)
	svc := NewSettingsService(store)

	require.NoError(t, svc.Set("graph.max_edges", "40"))
	require.NoError(t, svc.Set("qa.include_graph", "false"))
	require.NoError(t, svc.Set("llm.requests_per_second", "2"))
	require.NoError(t, svc.Set("llm.call_timeout", "90s"))
	require.NoError(t, svc.Set("graph.backend", "memory"))

	assert.Equal(t, 40, store.values["graph.max_edges"])
	assert.Equal(t, false, store.values["qa.include_graph"])
	assert.Equal(t, 2.0, store.values["llm.requests_per_second"])
	assert.Equal(t, "90s", store.values["llm.call_timeout"])

	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 40, got.Graph.MaxEdges)
	assert.Equal(t, 90*time.Second, got.LLM.CallTimeout)
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	svc := NewSettingsService(newMockConfigStore(nil))

	for key, value := range map[string]string{
		"no.such.key":                   "x",
		"graph.max_hops":                "two",
		"qa.include_graph":              "maybe",
		"llm.call_timeout":              "soon",
		"embedding.requests_per_second": "fast",
	} {
		err := svc.Set(key, value)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, key)
	}
}

func TestSettingsService_Set_StoreFailure(t *testing.T) {
	store := newMockConfigStore(nil)
	store.failSet = true

	err := NewSettingsService(store).Set("server.addr", ":1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSettingsService_Keys(t *testing.T) {
	keys := NewSettingsService(newMockConfigStore(nil)).Keys()

	assert.Contains(t, keys, "graph.backend")
	assert.Contains(t, keys, "vector.postgres_dsn")
	assert.IsIncreasing(t, keys)
}

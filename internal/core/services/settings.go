package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTimeout      = "llm.call_timeout"
	keyLLMRPS          = "llm.requests_per_second"
	keyGraphBackend    = "graph.backend"
	keyNeo4jURI        = "graph.neo4j_uri"
	keyNeo4jUser       = "graph.neo4j_user"
	keyNeo4jPassword   = "graph.neo4j_password"
	keyNeo4jDatabase   = "graph.neo4j_database"
	keyGraphMaxHops    = "graph.max_hops"
	keyGraphMaxEdges   = "graph.max_edges"
	keyGraphSeeds      = "graph.seeds_per_keyword"
	keyVectorBackend   = "vector.backend"
	keyVectorDSN       = "vector.postgres_dsn"
	keyChunkSize       = "chunker.size"
	keyChunkOverlap    = "chunker.overlap"
	keyChunkUnit       = "chunker.unit"
	keyIngestConc      = "ingest.concurrency"
	keyIngestChunkConc = "ingest.chunk_concurrency"
	keyExtractMin      = "extractor.min_chars"
	keyExtractMax      = "extractor.max_input_chars"
	keyQANResults      = "qa.n_results"
	keyQAIncludeGraph  = "qa.include_graph"
	keyServerAddr      = "server.addr"
	keyDataDir         = "data_dir"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
)

// knownKeys maps every recognised key to its value type.
var knownKeys = map[string]valueKind{
	keyEmbedProvider: kindString, keyEmbedModel: kindString, keyEmbedBaseURL: kindString,
	keyEmbedAPIKey: kindString, keyEmbedDims: kindInt, keyEmbedRPS: kindFloat,
	keyLLMProvider: kindString, keyLLMModel: kindString, keyLLMBaseURL: kindString,
	keyLLMAPIKey: kindString, keyLLMTimeout: kindDuration, keyLLMRPS: kindFloat,
	keyGraphBackend: kindString, keyNeo4jURI: kindString, keyNeo4jUser: kindString,
	keyNeo4jPassword: kindString, keyNeo4jDatabase: kindString,
	keyGraphMaxHops: kindInt, keyGraphMaxEdges: kindInt, keyGraphSeeds: kindInt,
	keyVectorBackend: kindString, keyVectorDSN: kindString,
	keyChunkSize: kindInt, keyChunkOverlap: kindInt, keyChunkUnit: kindString,
	keyIngestConc: kindInt, keyIngestChunkConc: kindInt,
	keyExtractMin: kindInt, keyExtractMax: kindInt,
	keyQANResults: kindInt, keyQAIncludeGraph: kindBool,
	keyServerAddr: kindString, keyDataDir: kindString,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          domain.AIProvider(s.getString(keyEmbedProvider, string(d.Embedding.Provider))),
			Model:             s.getString(keyEmbedModel, ""),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // Empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.configStore.GetInt(keyEmbedDims),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		LLM: domain.LLMSettings{
			Provider:          domain.AIProvider(s.getString(keyLLMProvider, string(d.LLM.Provider))),
			Model:             s.getString(keyLLMModel, ""),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL),
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			CallTimeout:       s.getDuration(keyLLMTimeout, d.LLM.CallTimeout),
			RequestsPerSecond: s.configStore.GetFloat(keyLLMRPS),
		},
		Graph: domain.GraphSettings{
			Backend:         domain.StoreBackend(s.getString(keyGraphBackend, string(d.Graph.Backend))),
			Neo4jURI:        s.getString(keyNeo4jURI, d.Graph.Neo4jURI),
			Neo4jUser:       s.getString(keyNeo4jUser, d.Graph.Neo4jUser),
			Neo4jPassword:   s.configStore.GetString(keyNeo4jPassword),
			Neo4jDatabase:   s.getString(keyNeo4jDatabase, d.Graph.Neo4jDatabase),
			MaxHops:         s.getInt(keyGraphMaxHops, d.Graph.MaxHops),
			MaxEdges:        s.getInt(keyGraphMaxEdges, d.Graph.MaxEdges),
			SeedsPerKeyword: s.getInt(keyGraphSeeds, d.Graph.SeedsPerKeyword),
		},
		Vector: domain.VectorSettings{
			Backend:     domain.StoreBackend(s.getString(keyVectorBackend, string(d.Vector.Backend))),
			PostgresDSN: s.configStore.GetString(keyVectorDSN),
		},
		Chunker: domain.ChunkerSettings{
			Size:    s.getInt(keyChunkSize, d.Chunker.Size),
			Overlap: s.getInt(keyChunkOverlap, d.Chunker.Overlap),
			Unit:    domain.ChunkUnit(s.getString(keyChunkUnit, string(d.Chunker.Unit))),
		},
		Ingest: domain.IngestSettings{
			Concurrency:      s.getInt(keyIngestConc, d.Ingest.Concurrency),
			ChunkConcurrency: s.getInt(keyIngestChunkConc, d.Ingest.ChunkConcurrency),
		},
		Extractor: domain.ExtractorSettings{
			MinChars:      s.getInt(keyExtractMin, d.Extractor.MinChars),
			MaxInputChars: s.getInt(keyExtractMax, d.Extractor.MaxInputChars),
		},
		QA: domain.QASettings{
			NResults:     s.getInt(keyQANResults, d.QA.NResults),
			IncludeGraph: s.getBool(keyQAIncludeGraph, d.QA.IncludeGraph),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, d.Server.Addr),
		},
		DataDir: s.configStore.GetString(keyDataDir),
	}

	// Models default per provider, so a provider switch alone picks a sensible model.
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Set validates value against the key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := knownKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}

	var typed any
	switch kind {
	case kindString:
		typed = value
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		typed = n
	case kindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		typed = f
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		typed = b
	case kindDuration:
		if _, err := time.ParseDuration(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%w: %s must be a duration such as 30s", domain.ErrInvalidInput, key)
		}
		typed = strings.TrimSpace(value)
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every recognised config key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateSettings checks enumerations and numeric bounds.
func ValidateSettings(s *domain.AppSettings) error {
	var problems []string
	if s.Embedding.Provider != "" && !s.Embedding.Provider.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown embedding provider %q", s.Embedding.Provider))
	}
	if s.LLM.Provider != "" && !s.LLM.Provider.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown llm provider %q", s.LLM.Provider))
	}
	if !s.Graph.Backend.IsValidGraphBackend() {
		problems = append(problems, fmt.Sprintf("graph.backend must be memory, sqlite or neo4j, got %q", s.Graph.Backend))
	}
	if !s.Vector.Backend.IsValidVectorBackend() {
		problems = append(problems, fmt.Sprintf("vector.backend must be memory, sqlite or pgvector, got %q", s.Vector.Backend))
	}
	if s.Chunker.Unit != domain.ChunkUnitChars && s.Chunker.Unit != domain.ChunkUnitTokens {
		problems = append(problems, fmt.Sprintf("chunker.unit must be chars or tokens, got %q", s.Chunker.Unit))
	}
	if s.Chunker.Size <= 0 || s.Chunker.Overlap < 0 || s.Chunker.Overlap >= s.Chunker.Size {
		problems = append(problems, "chunker.overlap must be non-negative and smaller than chunker.size")
	}
	if s.Graph.MaxHops < 0 || s.Graph.MaxEdges < 0 {
		problems = append(problems, "graph.max_hops and graph.max_edges must not be negative")
	}
	if s.QA.NResults < 1 || s.QA.NResults > domain.MaxNResults {
		problems = append(problems, fmt.Sprintf("qa.n_results must be between 1 and %d", domain.MaxNResults))
	}
	if s.Embedding.RequestsPerSecond < 0 || s.LLM.RequestsPerSecond < 0 {
		problems = append(problems, "requests_per_second must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if d := s.configStore.GetDuration(key); d > 0 {
		return d
	}
	return defaultVal
}

package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// StoreBackend selects a graph or vector store implementation.
type StoreBackend string

// Available store backends.
const (
	BackendMemory   StoreBackend = "memory"
	BackendSQLite   StoreBackend = "sqlite"
	BackendNeo4j    StoreBackend = "neo4j"
	BackendPGVector StoreBackend = "pgvector"
)

// IsValidGraphBackend returns true if b can back the graph store.
func (b StoreBackend) IsValidGraphBackend() bool {
	return b == BackendMemory || b == BackendSQLite || b == BackendNeo4j
}

// IsValidVectorBackend returns true if b can back the vector store.
func (b StoreBackend) IsValidVectorBackend() bool {
	return b == BackendMemory || b == BackendSQLite || b == BackendPGVector
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's known vector size.
	Dimensions int

	// RequestsPerSecond throttles calls; zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ResolvedDimensions returns Dimensions, falling back to the model's known size.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	if d, ok := EmbeddingDimensions()[e.Model]; ok {
		return d
	}
	return 768
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// CallTimeout bounds every extraction and synthesis call.
	CallTimeout time.Duration

	// RequestsPerSecond throttles calls; zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// GraphSettings holds graph store and traversal configuration.
type GraphSettings struct {
	Backend StoreBackend

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// MaxHops and MaxEdges bound QA traversal.
	MaxHops  int
	MaxEdges int

	// SeedsPerKeyword caps name matches per question keyword.
	SeedsPerKeyword int
}

// VectorSettings holds vector store configuration.
type VectorSettings struct {
	Backend StoreBackend

	// PostgresDSN is the connection string for the pgvector backend.
	PostgresDSN string
}

// ChunkUnit selects how chunk size is measured.
type ChunkUnit string

// Chunk size units.
const (
	ChunkUnitChars  ChunkUnit = "chars"
	ChunkUnitTokens ChunkUnit = "tokens"
)

// ChunkerSettings controls chunk bounds.
type ChunkerSettings struct {
	Size    int
	Overlap int
	Unit    ChunkUnit
}

// IngestSettings controls ingestion parallelism.
type IngestSettings struct {
	// Concurrency is the number of sources processed in parallel.
	Concurrency int

	// ChunkConcurrency is the number of chunks per source processed in parallel.
	ChunkConcurrency int
}

// ExtractorSettings bounds extraction input.
type ExtractorSettings struct {
	// MinChars skips chunks too short to carry relations.
	MinChars int

	// MaxInputChars truncates chunk text before prompting.
	MaxInputChars int
}

// QASettings holds question-answering defaults.
type QASettings struct {
	NResults     int
	IncludeGraph bool
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Graph     GraphSettings
	Vector    VectorSettings
	Chunker   ChunkerSettings
	Ingest    IngestSettings
	Extractor ExtractorSettings
	QA        QASettings
	Server    ServerSettings

	// DataDir holds the sqlite database, prompts and config.
	DataDir string
}

// DefaultAppSettings returns settings with sensible defaults.
// Both AI capabilities default to a local Ollama instance.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			CallTimeout: 60 * time.Second,
		},
		Graph: GraphSettings{
			Backend:         BackendSQLite,
			Neo4jURI:        "neo4j://localhost:7687",
			Neo4jUser:       "neo4j",
			Neo4jDatabase:   "neo4j",
			MaxHops:         DefaultMaxHops,
			MaxEdges:        DefaultMaxEdges,
			SeedsPerKeyword: 3,
		},
		Vector: VectorSettings{
			Backend: BackendSQLite,
		},
		Chunker: ChunkerSettings{
			Size:    1000,
			Overlap: 200,
			Unit:    ChunkUnitChars,
		},
		Ingest: IngestSettings{
			Concurrency:      4,
			ChunkConcurrency: 4,
		},
		Extractor: ExtractorSettings{
			MinChars:      20,
			MaxInputChars: 8000,
		},
		QA: QASettings{
			NResults:     DefaultNResults,
			IncludeGraph: true,
		},
		Server: ServerSettings{
			Addr: ":8000",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
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

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config so new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "sections"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": 1000,
				"overlap":    200,
				"unit":       string(ChunkUnitChars),
			},
		},
	}
}

// PipelineConfigFrom builds a pipeline configuration from chunker settings.
func PipelineConfigFrom(c ChunkerSettings) PipelineConfig {
	cfg := DefaultPipelineConfig()
	cfg.ProcessorConfigs["chunker"] = map[string]any{
		"chunk_size": c.Size,
		"overlap":    c.Overlap,
		"unit":       string(c.Unit),
	}
	return cfg
}

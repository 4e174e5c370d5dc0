// Package app assembles the FusionQA services from settings: AI adapters,
// graph and vector stores, the normaliser registry and the core services.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/fusionqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/fusionqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fusionqa/internal/adapters/driven/storage/neo4jgraph"
	"github.com/custodia-labs/fusionqa/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/fusionqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/core/services"
	"github.com/custodia-labs/fusionqa/internal/logger"
	"github.com/custodia-labs/fusionqa/internal/normalisers"
	"github.com/custodia-labs/fusionqa/internal/postprocessors"
)

// App holds the wired services and everything that must be closed.
type App struct {
	Settings domain.AppSettings

	Ingest *services.IngestService
	QA     *services.QAService
	Graph  *services.GraphService
	Health *services.HealthService

	// Kinds lists the source kinds the normaliser registry accepts.
	Kinds []domain.SourceKind

	// Warnings are non-fatal setup issues, such as a missing LLM.
	Warnings []string

	closers []func() error
}

// Option customises New.
type Option func(*options)

type options struct {
	embedder driven.EmbeddingService
	llm      driven.LLMService
	injected bool
	prompts  driven.PromptStore
}

// WithAI supplies the AI services instead of creating them from settings.
// llm may be nil. The caller keeps ownership of both.
func WithAI(embedder driven.EmbeddingService, llm driven.LLMService) Option {
	return func(o *options) {
		o.embedder = embedder
		o.llm = llm
		o.injected = true
	}
}

// WithPromptStore makes extraction and synthesis prompts customisable.
func WithPromptStore(store driven.PromptStore) Option {
	return func(o *options) {
		o.prompts = store
	}
}

// New builds every service. On error, anything already opened is closed.
func New(ctx context.Context, settings domain.AppSettings, opts ...Option) (a *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a = &App{Settings: settings}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	embedder, llm := o.embedder, o.llm
	if !o.injected {
		result, initErr := ai.Init(ctx, settings)
		if initErr != nil {
			return nil, initErr
		}
		a.closers = append(a.closers, result.Close)
		a.Warnings = append(a.Warnings, result.Warnings...)
		embedder, llm = result.EmbeddingService, result.LLMService
	}

	graph, vectors, err := a.openStores(ctx, settings, embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	pipeline, err := postprocessors.DefaultPipeline(settings.Chunker)
	if err != nil {
		return nil, fmt.Errorf("build chunk pipeline: %w", err)
	}
	registry := normalisers.NewRegistry(pipeline)
	normalisers.RegisterDefaults(registry)
	a.Kinds = registry.SupportedKinds()

	caller := services.NewLLMCaller(llm, services.WithCallTimeout(settings.LLM.CallTimeout))

	// A nil interface, not a nil *Extractor, disables graph building.
	var extractor driven.Extractor
	if caller.Available() {
		ex := services.NewExtractor(caller,
			services.WithMinChars(settings.Extractor.MinChars),
			services.WithMaxInputChars(settings.Extractor.MaxInputChars),
		)
		if o.prompts != nil {
			ex.SetPromptStore(o.prompts)
		}
		extractor = ex
	} else {
		a.Warnings = append(a.Warnings, "graph extraction disabled: no LLM available")
	}

	a.Ingest = services.NewIngestService(registry, extractor, embedder, vectors, graph,
		services.WithConcurrency(settings.Ingest.Concurrency),
		services.WithChunkConcurrency(settings.Ingest.ChunkConcurrency),
	)
	a.QA = services.NewQAService(embedder, vectors, graph, caller,
		services.WithPathQuery(domain.PathQuery{MaxHops: settings.Graph.MaxHops, MaxEdges: settings.Graph.MaxEdges}),
		services.WithSeedsPerKeyword(settings.Graph.SeedsPerKeyword),
	)
	if o.prompts != nil {
		a.QA.SetPromptStore(o.prompts)
	}
	a.Graph = services.NewGraphService(graph, vectors)
	a.Health = services.NewHealthService(embedder, llm, graph, vectors, map[string]string{
		"graph":     string(settings.Graph.Backend),
		"vector":    string(settings.Vector.Backend),
		"embedding": string(settings.Embedding.Provider),
		"llm":       string(settings.LLM.Provider),
	})

	for _, w := range a.Warnings {
		logger.Warn("%s", w)
	}
	return a, nil
}

// openStores opens the configured graph and vector backends. Both sqlite
// views share one database file.
func (a *App) openStores(ctx context.Context, settings domain.AppSettings, dims int) (driven.GraphStore, driven.VectorStore, error) {
	var db *sqlite.Store
	if settings.Graph.Backend == domain.BackendSQLite || settings.Vector.Backend == domain.BackendSQLite {
		s, err := sqlite.NewStore(settings.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: open sqlite: %w", domain.ErrStoreUnavailable, err)
		}
		db = s
		// The views hold their own references; this drops the opener's.
		defer db.Close()
		logger.Debug("Opened sqlite store at %s", db.Path())
	}

	var graph driven.GraphStore
	switch settings.Graph.Backend {
	case domain.BackendMemory:
		graph = memory.NewGraphStore()
	case domain.BackendSQLite:
		graph = db.GraphStore()
	case domain.BackendNeo4j:
		g, err := neo4jgraph.NewGraphStore(ctx, neo4jgraph.Config{
			URI:      settings.Graph.Neo4jURI,
			User:     settings.Graph.Neo4jUser,
			Password: settings.Graph.Neo4jPassword,
			Database: settings.Graph.Neo4jDatabase,
		})
		if err != nil {
			return nil, nil, err
		}
		graph = g
	default:
		return nil, nil, fmt.Errorf("%w: unknown graph backend %q", domain.ErrInvalidInput, settings.Graph.Backend)
	}
	a.closers = append(a.closers, graph.Close)

	var vectors driven.VectorStore
	switch settings.Vector.Backend {
	case domain.BackendMemory:
		vectors = memory.NewVectorStore(dims)
	case domain.BackendSQLite:
		v, err := db.VectorStore(ctx, dims)
		if err != nil {
			return nil, nil, err
		}
		vectors = v
	case domain.BackendPGVector:
		v, err := pgvector.NewVectorStore(ctx, settings.Vector.PostgresDSN, dims)
		if err != nil {
			return nil, nil, err
		}
		vectors = v
	default:
		return nil, nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, settings.Vector.Backend)
	}
	a.closers = append(a.closers, vectors.Close)

	logger.Debug("Stores ready: graph=%s vector=%s dims=%d", settings.Graph.Backend, settings.Vector.Backend, dims)
	return graph, vectors, nil
}

// Close releases stores and AI services in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

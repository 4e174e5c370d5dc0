package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driving"
	"github.com/custodia-labs/fusionqa/internal/keylock"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// Default ingestion parallelism.
const (
	DefaultConcurrency      = 4
	DefaultChunkConcurrency = 4

	// embedBatchSize is the number of chunk texts per EmbedBatch call.
	embedBatchSize = 16
)

// IngestService drives sources through normalisation, extraction and
// indexing. Each source is atomic from the caller's view: a source that
// fails leaves no embeddings behind.
type IngestService struct {
	normalizer driven.Normalizer
	extractor  driven.Extractor
	embedder   driven.EmbeddingService
	vectors    driven.VectorStore
	graph      driven.GraphStore
	resolver   driven.EntityResolver

	concurrency      int
	chunkConcurrency int

	sourceLocks *keylock.Map

	mu       sync.RWMutex
	statuses map[string]*domain.SourceStatus
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithConcurrency bounds the number of sources processed in parallel.
func WithConcurrency(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithChunkConcurrency bounds per-source chunk parallelism.
func WithChunkConcurrency(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.chunkConcurrency = n
		}
	}
}

// WithEntityResolver sets the resolver applied before graph merges.
func WithEntityResolver(r driven.EntityResolver) IngestOption {
	return func(s *IngestService) {
		s.resolver = r
	}
}

// NewIngestService creates a new ingestion orchestrator.
func NewIngestService(
	normalizer driven.Normalizer,
	extractor driven.Extractor,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	graph driven.GraphStore,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		normalizer:       normalizer,
		extractor:        extractor,
		embedder:         embedder,
		vectors:          vectors,
		graph:            graph,
		concurrency:      DefaultConcurrency,
		chunkConcurrency: DefaultChunkConcurrency,
		sourceLocks:      keylock.New(),
		statuses:         make(map[string]*domain.SourceStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sourceOutcome is the per-source contribution to a batch result.
type sourceOutcome struct {
	status        domain.SourceStatus
	chunkFailures []domain.ChunkFailure
}

// Ingest processes every source, in parallel up to the concurrency limit.
// A failing source never aborts the others.
func (s *IngestService) Ingest(ctx context.Context, sources []domain.Source) (*domain.IngestResult, error) {
	logger.Section("Ingestion")
	start := time.Now()

	if s.normalizer == nil || s.embedder == nil || s.vectors == nil || s.graph == nil {
		return nil, fmt.Errorf("%w: ingestion pipeline is not fully configured", domain.ErrInvalidInput)
	}

	batch := make([]domain.Source, len(sources))
	for i, src := range sources {
		if src.ID == "" {
			if src.Locator != "" {
				src.ID = domain.SourceIDFromLocator(src.Locator)
			} else {
				src.ID = "src_" + uuid.NewString()
			}
		}
		batch[i] = src
		s.setStatus(domain.SourceStatus{SourceID: src.ID, Locator: src.Locator, State: domain.StatePending})
	}

	result := &domain.IngestResult{BatchID: uuid.NewString()}
	logger.Debug("Batch %s: %d sources, concurrency %d", result.BatchID, len(batch), s.concurrency)

	outcomes := make([]sourceOutcome, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range batch {
		g.Go(func() error {
			outcomes[i] = s.ingestSource(gctx, &batch[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		result.Sources = append(result.Sources, o.status)
		result.ChunkFailures = append(result.ChunkFailures, o.chunkFailures...)
		if o.status.State != domain.StateDone {
			result.Failed = append(result.Failed, domain.FailedSource{Source: displayLocator(o.status), Reason: o.status.Reason})
			continue
		}
		result.SourcesIngested++
		result.EntitiesExtracted += o.status.Entities
		result.RelationsExtracted += o.status.Relations
		result.ChunksIndexed += o.status.Chunks
		if o.status.Chunks > 0 {
			result.DocumentsIndexed++
		}
	}
	result.Duration = time.Since(start)

	logger.Info("Ingested %d/%d sources: %d chunks, %d entities, %d relations",
		result.SourcesIngested, len(batch), result.ChunksIndexed, result.EntitiesExtracted, result.RelationsExtracted)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// Status returns the latest known status of a source.
func (s *IngestService) Status(_ context.Context, sourceID string) (*domain.SourceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.statuses[sourceID]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", sourceID, domain.ErrNotFound)
	}
	cp := *status
	return &cp, nil
}

// Remove deletes everything derived from a source: its embeddings, its
// graph provenance and its status.
func (s *IngestService) Remove(ctx context.Context, sourceID string) error {
	if sourceID == "" {
		return fmt.Errorf("%w: source ID is required", domain.ErrInvalidInput)
	}
	if s.vectors == nil || s.graph == nil {
		return fmt.Errorf("%w: ingestion pipeline is not fully configured", domain.ErrInvalidInput)
	}

	unlock := s.sourceLocks.Lock(sourceID)
	defer unlock()

	n, err := s.vectors.DeleteBySource(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("delete embeddings of %s: %w", sourceID, err)
	}
	if err := s.graph.RemoveSource(ctx, sourceID); err != nil {
		return fmt.Errorf("remove graph provenance of %s: %w", sourceID, err)
	}

	s.mu.Lock()
	delete(s.statuses, sourceID)
	s.mu.Unlock()

	logger.Info("Removed source %s (%d embeddings)", sourceID, n)
	return nil
}

// ingestSource runs one source to a terminal state. Sources sharing an ID
// are serialised.
//
//nolint:gocyclo // Pipeline orchestration with sequential steps
func (s *IngestService) ingestSource(ctx context.Context, src *domain.Source) sourceOutcome {
	unlock := s.sourceLocks.Lock(src.ID)
	defer unlock()

	out := sourceOutcome{status: domain.SourceStatus{
		SourceID:  src.ID,
		Locator:   src.Locator,
		State:     domain.StatePending,
		StartedAt: time.Now(),
	}}
	fail := func(reason string) sourceOutcome {
		out.status.State = domain.StateFailed
		out.status.Reason = reason
		out.status.EndedAt = time.Now()
		s.setStatus(out.status)
		logger.Warn("Ingestion failed for %s: %s", src.DisplayName(), reason)
		return out
	}
	advance := func(state domain.IngestState) {
		out.status.State = state
		s.setStatus(out.status)
		logger.Debug("%s: %s", src.DisplayName(), state)
	}

	if err := ctx.Err(); err != nil {
		return fail(err.Error())
	}

	// 1. NORMALIZE
	advance(domain.StateNormalizing)
	chunks, err := s.normalizer.Normalize(ctx, src)
	if err != nil {
		return fail(domain.AsError(err).Error())
	}
	out.status.Chunks = len(chunks)

	// 2. REMOVE PREVIOUS ARTIFACTS (re-ingest replaces)
	if _, err := s.vectors.DeleteBySource(ctx, src.ID); err != nil {
		return fail(fmt.Sprintf("clear previous embeddings: %v", err))
	}
	if err := s.graph.RemoveSource(ctx, src.ID); err != nil {
		return fail(fmt.Sprintf("clear previous graph provenance: %v", err))
	}

	// 3. EXTRACT (per-chunk failures are contained)
	advance(domain.StateExtracting)
	extractions, failures := s.extractChunks(ctx, chunks)
	out.chunkFailures = failures
	if err := ctx.Err(); err != nil {
		return fail(err.Error())
	}

	// 4. EMBED + INDEX, compensating on failure
	advance(domain.StateIndexing)
	if err := s.indexChunks(ctx, src, chunks); err != nil {
		s.compensate(src.ID)
		return fail(domain.AsError(err).Error())
	}

	// 5. MERGE INTO GRAPH
	merged, err := resolveExtraction(ctx, s.resolver, mergeExtractions(extractions))
	if err != nil {
		s.compensate(src.ID)
		return fail(fmt.Sprintf("resolve entities: %v", err))
	}
	if len(merged.Entities) > 0 || len(merged.Relations) > 0 {
		if err := s.graph.Upsert(ctx, merged.Entities, merged.Relations); err != nil {
			s.compensate(src.ID)
			return fail(fmt.Sprintf("graph upsert: %v", err))
		}
	}
	out.status.Entities = len(merged.Entities)
	out.status.Relations = len(merged.Relations)

	out.status.State = domain.StateDone
	out.status.EndedAt = time.Now()
	s.setStatus(out.status)
	logger.Debug("%s: %d chunks, %d entities, %d relations", src.DisplayName(), len(chunks), len(merged.Entities), len(merged.Relations))
	return out
}

// extractChunks runs the extractor over every chunk in parallel. Results
// are returned in chunk order; failures are recorded, not propagated.
func (s *IngestService) extractChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.Extraction, []domain.ChunkFailure) {
	if s.extractor == nil || len(chunks) == 0 {
		return nil, nil
	}

	results := make([]domain.Extraction, len(chunks))
	errs := make([]error, len(chunks))

	var g errgroup.Group
	g.SetLimit(s.chunkConcurrency)
	for i := range chunks {
		g.Go(func() error {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return nil
			}
			results[i], errs[i] = s.extractor.Extract(ctx, chunks[i])
			return nil
		})
	}
	_ = g.Wait()

	var failures []domain.ChunkFailure
	for i, err := range errs {
		if err == nil {
			continue
		}
		logger.Debug("Extraction failed for %s: %v", chunks[i].ID, err)
		failures = append(failures, domain.ChunkFailure{
			SourceID: chunks[i].SourceID,
			ChunkID:  chunks[i].ID,
			Reason:   domain.AsError(err).Error(),
		})
	}
	return results, failures
}

// indexChunks embeds chunk texts in batches and upserts one record per
// chunk. The first error cancels outstanding work.
func (s *IngestService) indexChunks(ctx context.Context, src *domain.Source, chunks []domain.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.chunkConcurrency)

	for lo := 0; lo < len(chunks); lo += embedBatchSize {
		hi := min(lo+embedBatchSize, len(chunks))
		batch := chunks[lo:hi]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vectors, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("%w: got %d embeddings for %d chunks", domain.ErrEmbeddingUnavailable, len(vectors), len(batch))
			}
			for i, c := range batch {
				rec := domain.EmbeddingRecord{
					ChunkID: c.ID,
					Vector:  vectors[i],
					Metadata: domain.ChunkMetadata{
						SourceID: src.ID,
						ChunkID:  c.ID,
						Section:  c.Section,
						Locator:  src.Locator,
						Text:     c.Text,
					},
				}
				if err := s.vectors.Upsert(gctx, rec); err != nil {
					return fmt.Errorf("upsert %s: %w", c.ID, err)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// compensate removes whatever a failed source wrote. It runs detached from
// the request context so a cancelled batch still cleans up.
func (s *IngestService) compensate(sourceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errs []error
	if n, err := s.vectors.DeleteBySource(ctx, sourceID); err != nil {
		errs = append(errs, fmt.Errorf("delete embeddings: %w", err))
	} else {
		logger.Debug("Compensation removed %d embeddings for %s", n, sourceID)
	}
	if err := s.graph.RemoveSource(ctx, sourceID); err != nil {
		errs = append(errs, fmt.Errorf("remove graph provenance: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("Compensation incomplete for %s: %v", sourceID, err)
	}
}

func (s *IngestService) setStatus(status domain.SourceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.SourceID] = &status
}

func displayLocator(status domain.SourceStatus) string {
	if status.Locator != "" {
		return status.Locator
	}
	return status.SourceID
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusionqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/normalisers"
	"github.com/custodia-labs/fusionqa/internal/postprocessors"
)

// appleLLM extracts the Apple facts and answers synthesis prompts.
func appleLLM() *mockLLMService {
	return &mockLLMService{respond: func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "QUESTION:") {
			return "Apple Inc. operates in the Technology sector [Source 1].", nil
		}
		if strings.Contains(prompt, appleSentence) {
			return appleExtractionJSON, nil
		}
		return `{"entities": [], "relations": []}`, nil
	}}
}

type testPipeline struct {
	llm      *mockLLMService
	embedder *mockEmbeddingService
	vectors  *memory.VectorStore
	graph    *memory.GraphStore
	ingest   *IngestService
	qa       *QAService
}

func newTestPipeline(t *testing.T, llm *mockLLMService) *testPipeline {
	t.Helper()

	pipeline, err := postprocessors.DefaultPipeline(domain.ChunkerSettings{Size: 500, Overlap: 50, Unit: domain.ChunkUnitChars})
	require.NoError(t, err)
	registry := normalisers.NewRegistry(pipeline)
	normalisers.RegisterDefaults(registry)

	p := &testPipeline{
		llm:      llm,
		embedder: newMockEmbedder(),
		vectors:  memory.NewVectorStore(64),
		graph:    memory.NewGraphStore(),
	}
	caller := NewLLMCaller(llm, WithRetryBackoff(0))
	p.ingest = NewIngestService(registry, NewExtractor(caller), p.embedder, p.vectors, p.graph)
	p.qa = NewQAService(p.embedder, p.vectors, p.graph, caller)
	return p
}

func appleSource() domain.Source {
	return domain.Source{ID: "src_apple", Kind: domain.KindText, Locator: "apple.txt", Content: []byte(appleSentence)}
}

func TestIngest_AppleScenario(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, appleLLM())

	result, err := p.ingest.Ingest(ctx, []domain.Source{appleSource()})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SourcesIngested)
	assert.Equal(t, 1, result.DocumentsIndexed)
	assert.Equal(t, 1, result.ChunksIndexed)
	assert.Equal(t, 2, result.EntitiesExtracted)
	assert.Equal(t, 1, result.RelationsExtracted)
	assert.Empty(t, result.Failed)
	assert.NotEmpty(t, result.BatchID)

	found, err := p.graph.FindEntities(ctx, []string{"apple inc.", "technology"}, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.EntityRef{
		{Name: "Apple Inc.", Type: domain.EntityOrganization},
		{Name: "Technology", Type: domain.EntityConcept},
	}, []domain.EntityRef{found[0].Ref(), found[1].Ref()})

	paths, err := p.graph.QueryPaths(ctx, []domain.EntityRef{found[0].Ref()}, domain.PathQuery{})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, domain.RelationOperatesIn, paths[0].Relation)
	assert.Equal(t, []domain.Provenance{{SourceID: "src_apple", ChunkID: "src_apple#0"}}, paths[0].Provenance)

	status, err := p.ingest.Status(ctx, "src_apple")
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, status.State)
	assert.Equal(t, 1, status.Chunks)
}

func TestIngest_Idempotent(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, appleLLM())

	_, err := p.ingest.Ingest(ctx, []domain.Source{appleSource()})
	require.NoError(t, err)
	graphOnce, err := p.graph.Stats(ctx)
	require.NoError(t, err)
	vectorsOnce, err := p.vectors.Stats(ctx)
	require.NoError(t, err)

	_, err = p.ingest.Ingest(ctx, []domain.Source{appleSource()})
	require.NoError(t, err)
	graphTwice, err := p.graph.Stats(ctx)
	require.NoError(t, err)
	vectorsTwice, err := p.vectors.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, graphOnce, graphTwice)
	assert.Equal(t, vectorsOnce, vectorsTwice)

	paths, err := p.graph.QueryPaths(ctx, []domain.EntityRef{{Name: "Apple Inc.", Type: domain.EntityOrganization}}, domain.PathQuery{})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, 1, paths[0].Support)
}

func TestIngest_ReingestReplacesChangedContent(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, appleLLM())

	_, err := p.ingest.Ingest(ctx, []domain.Source{appleSource()})
	require.NoError(t, err)

	changed := appleSource()
	changed.Content = []byte("Bananas are yellow and grow in tropical climates around the world.")
	_, err = p.ingest.Ingest(ctx, []domain.Source{changed})
	require.NoError(t, err)

	stats, err := p.graph.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EdgeCount)

	vstats, err := p.vectors.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, vstats.Embeddings)
}

func TestIngest_DerivesSourceIDs(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, appleLLM())

	src := appleSource()
	src.ID = ""
	inline := domain.Source{Kind: domain.KindText, Content: []byte("Inline text without a locator for ingestion.")}

	result, err := p.ingest.Ingest(ctx, []domain.Source{src, inline})
	require.NoError(t, err)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, domain.SourceIDFromLocator("apple.txt"), result.Sources[0].SourceID)
	assert.True(t, strings.HasPrefix(result.Sources[1].SourceID, "src_"))
}

func TestIngest_NormalizeFailureIsContained(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, appleLLM())

	bad := domain.Source{ID: "src_bad", Kind: domain.KindJSON, Locator: "bad.json", Content: []byte("{not json")}
	unknown := domain.Source{ID: "src_doc", Kind: "docx", Locator: "a.docx", Content: []byte("x")}

	result, err := p.ingest.Ingest(ctx, []domain.Source{bad, appleSource(), unknown})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SourcesIngested)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "bad.json", result.Failed[0].Source)
	assert.Contains(t, result.Failed[0].Reason, string(domain.KindParseError))
	assert.Equal(t, "a.docx", result.Failed[1].Source)
	assert.Contains(t, result.Failed[1].Reason, string(domain.KindUnsupportedKind))

	status, err := p.ingest.Status(ctx, "src_bad")
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, status.State)
}

func TestIngest_ExtractionFailureIsPerChunk(t *testing.T) {
	ctx := context.Background()
	vectors := memory.NewVectorStore(64)
	graph := memory.NewGraphStore()
	normalizer := &mockNormalizer{chunks: map[string][]string{
		"s1": {appleSentence, "BROKEN chunk that the extractor chokes on.", "Filler text."},
	}}
	extractor := &mockExtractor{
		failOn: "BROKEN",
		byPhrase: map[string]domain.Extraction{
			"Apple": {
				Entities:  []domain.Entity{{Name: "Apple Inc.", Type: domain.EntityOrganization}, {Name: "Technology", Type: domain.EntityConcept}},
				Relations: []domain.Relation{{Source: domain.EntityRef{Name: "Apple Inc.", Type: domain.EntityOrganization}, Type: domain.RelationOperatesIn, Target: domain.EntityRef{Name: "Technology", Type: domain.EntityConcept}}},
			},
		},
	}
	svc := NewIngestService(normalizer, extractor, newMockEmbedder(), vectors, graph)

	result, err := svc.Ingest(ctx, []domain.Source{{ID: "s1", Kind: domain.KindText}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SourcesIngested)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 3, result.ChunksIndexed)
	require.Len(t, result.ChunkFailures, 1)
	assert.Equal(t, "s1#1", result.ChunkFailures[0].ChunkID)
	assert.Equal(t, 1, result.RelationsExtracted)

	stats, err := vectors.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Embeddings)
}

func TestIngest_EmbeddingFailureCompensates(t *testing.T) {
	ctx := context.Background()
	vectors := memory.NewVectorStore(64)
	graph := memory.NewGraphStore()

	var poisoned []string
	for i := 0; i < 40; i++ {
		poisoned = append(poisoned, fmt.Sprintf("Chunk number %d of the poisoned source.", i))
	}
	poisoned = append(poisoned, "POISON")

	normalizer := &mockNormalizer{chunks: map[string][]string{
		"bad":  poisoned,
		"good": {"A healthy chunk about Apple."},
	}}
	embedder := newMockEmbedder()
	embedder.failOn = "POISON"
	svc := NewIngestService(normalizer, &mockExtractor{}, embedder, vectors, graph, WithChunkConcurrency(1))

	result, err := svc.Ingest(ctx, []domain.Source{{ID: "bad", Kind: domain.KindText}, {ID: "good", Kind: domain.KindText}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SourcesIngested)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "bad", result.Failed[0].Source)
	assert.Contains(t, result.Failed[0].Reason, string(domain.KindUnavailable))

	stats, err := vectors.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Embeddings)
	assert.Equal(t, 1, stats.Sources)

	status, err := svc.Status(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, status.State)
}

func TestIngest_EmptyBatch(t *testing.T) {
	p := newTestPipeline(t, appleLLM())

	result, err := p.ingest.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SourcesIngested)
	assert.Empty(t, result.Present().Failed)
	assert.NotNil(t, result.Present().Failed)
}

func TestIngest_StatusUnknownSource(t *testing.T) {
	p := newTestPipeline(t, appleLLM())

	_, err := p.ingest.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngest_RemoveDeletesArtifacts(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, appleLLM())

	_, err := p.ingest.Ingest(ctx, []domain.Source{appleSource()})
	require.NoError(t, err)

	require.NoError(t, p.ingest.Remove(ctx, "src_apple"))

	vectors, err := p.vectors.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, vectors.Embeddings)
	graph, err := p.graph.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, graph.EdgeCount)

	_, err = p.ingest.Status(ctx, "src_apple")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, p.ingest.Remove(ctx, ""), domain.ErrInvalidInput)
}

func TestIngest_NotConfigured(t *testing.T) {
	_, err := NewIngestService(nil, nil, nil, nil, nil).Ingest(context.Background(), []domain.Source{appleSource()})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestIngest_AliasResolverFoldsNames(t *testing.T) {
	ctx := context.Background()
	graph := memory.NewGraphStore()
	normalizer := &mockNormalizer{chunks: map[string][]string{"s1": {"Apple makes phones."}}}
	extractor := &mockExtractor{byPhrase: map[string]domain.Extraction{
		"Apple": {
			Entities: []domain.Entity{{Name: "Apple", Type: domain.EntityOrganization}, {Name: "iPhone", Type: domain.EntityProduct}},
			Relations: []domain.Relation{{
				Source: domain.EntityRef{Name: "Apple", Type: domain.EntityOrganization},
				Type:   domain.RelationProduces,
				Target: domain.EntityRef{Name: "iPhone", Type: domain.EntityProduct},
			}},
		},
	}}
	resolver := NewAliasResolver()
	resolver.Register("Apple", domain.Entity{Name: "Apple Inc.", Type: domain.EntityOrganization})

	svc := NewIngestService(normalizer, extractor, newMockEmbedder(), memory.NewVectorStore(64), graph, WithEntityResolver(resolver))
	_, err := svc.Ingest(ctx, []domain.Source{{ID: "s1", Kind: domain.KindText}})
	require.NoError(t, err)

	paths, err := graph.QueryPaths(ctx, []domain.EntityRef{{Name: "Apple Inc.", Type: domain.EntityOrganization}}, domain.PathQuery{})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "Apple Inc.", paths[0].Source)
}

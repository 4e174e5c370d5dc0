package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

const appleSentence = "Apple Inc. operates in the Technology sector."

const appleExtractionJSON = `{"entities": [{"name": "Apple Inc.", "type": "ORGANIZATION"}, {"name": "Technology", "type": "CONCEPT"}],
"relations": [{"source": "Apple Inc.", "relation": "OPERATES_IN", "target": "Technology"}]}`

func appleChunk() domain.Chunk {
	return domain.Chunk{ID: "src_apple#0", SourceID: "src_apple", Text: appleSentence}
}

func newTestExtractor(llm *mockLLMService, opts ...ExtractorOption) *Extractor {
	return NewExtractor(NewLLMCaller(llm, WithRetryBackoff(0)), opts...)
}

func TestExtractor_AppleSentence(t *testing.T) {
	llm := &mockLLMService{respond: func(_ context.Context, _ string) (string, error) {
		return "Here you go:\n```json\n" + appleExtractionJSON + "\n```", nil
	}}

	ex, err := newTestExtractor(llm).Extract(context.Background(), appleChunk())
	require.NoError(t, err)

	assert.Equal(t, []domain.Entity{
		{Name: "Apple Inc.", Type: domain.EntityOrganization},
		{Name: "Technology", Type: domain.EntityConcept},
	}, ex.Entities)
	require.Len(t, ex.Relations, 1)
	assert.Equal(t, domain.RelationOperatesIn, ex.Relations[0].Type)
	assert.Equal(t, "Apple Inc.", ex.Relations[0].Source.Name)
	assert.Equal(t, "Technology", ex.Relations[0].Target.Name)
	assert.Equal(t, []domain.Provenance{{SourceID: "src_apple", ChunkID: "src_apple#0"}}, ex.Relations[0].Provenance)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "OPERATES_IN")
	assert.Contains(t, llm.prompts[0], "ORGANIZATION")
	assert.Contains(t, llm.prompts[0], appleSentence)
}

func TestExtractor_ShortChunkSkipsLLM(t *testing.T) {
	llm := &mockLLMService{}
	ex, err := newTestExtractor(llm).Extract(context.Background(), domain.Chunk{ID: "s#0", Text: "Page 3"})
	require.NoError(t, err)
	assert.Empty(t, ex.Entities)
	assert.Equal(t, int32(0), llm.calls.Load())
}

func TestExtractor_RepairRetry(t *testing.T) {
	llm := &mockLLMService{}
	llm.respond = func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "INVALID OUTPUT") {
			assert.Contains(t, prompt, "entities: Apple")
			return appleExtractionJSON, nil
		}
		return "entities: Apple", nil
	}

	ex, err := newTestExtractor(llm).Extract(context.Background(), appleChunk())
	require.NoError(t, err)
	assert.Len(t, ex.Entities, 2)
	assert.Equal(t, int32(2), llm.calls.Load())
}

func TestExtractor_SecondParseFailure(t *testing.T) {
	llm := &mockLLMService{respond: func(_ context.Context, _ string) (string, error) {
		return `{"entities": [`, nil
	}}

	_, err := newTestExtractor(llm).Extract(context.Background(), appleChunk())
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Equal(t, int32(2), llm.calls.Load())
}

func TestExtractor_LLMUnavailable(t *testing.T) {
	_, err := NewExtractor(NewLLMCaller(nil)).Extract(context.Background(), appleChunk())
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestExtractor_Sanitisation(t *testing.T) {
	llm := &mockLLMService{respond: func(_ context.Context, _ string) (string, error) {
		return `{"entities": [
			{"name": "  Tim   Cook ", "type": "person"},
			{"name": "Apple Inc.", "type": "ORGANISATION"},
			{"name": "apple inc.", "type": "ORGANISATION"},
			{"name": "", "type": "PERSON"}
		], "relations": [
			{"source": "tim cook", "relation": "works for", "target": "Apple Inc."},
			{"source": "Tim Cook", "relation": "MENTORS", "target": "Apple Inc."},
			{"source": "Tim Cook", "relation": "OWNS", "target": "Microsoft"},
			{"source": "Tim Cook", "type": "WORKS_FOR", "target": "Apple Inc."},
			{"source": "Apple Inc.", "relation": "OWNS", "target": "Apple Inc."}
		]}`, nil
	}}

	ex, err := newTestExtractor(llm).Extract(context.Background(), appleChunk())
	require.NoError(t, err)

	assert.Equal(t, []domain.Entity{
		{Name: "Tim Cook", Type: domain.EntityPerson},
		{Name: "Apple Inc.", Type: domain.EntityConcept},
	}, ex.Entities)

	require.Len(t, ex.Relations, 2)
	assert.Equal(t, domain.RelationWorksFor, ex.Relations[0].Type)
	assert.Equal(t, "Tim Cook", ex.Relations[0].Source.Name)
	assert.Equal(t, domain.RelationRelatedTo, ex.Relations[1].Type)

	keys := make(map[string]bool)
	for _, e := range ex.Entities {
		keys[e.Key()] = true
	}
	for _, r := range ex.Relations {
		assert.True(t, keys[r.Source.Key()], "dangling source %s", r.Source.Name)
		assert.True(t, keys[r.Target.Key()], "dangling target %s", r.Target.Name)
	}
}

func TestExtractor_TruncatesInput(t *testing.T) {
	llm := &mockLLMService{respond: func(_ context.Context, _ string) (string, error) {
		return `{"entities": [], "relations": []}`, nil
	}}
	long := strings.Repeat("a", 200) + "TAIL"

	_, err := newTestExtractor(llm, WithMaxInputChars(100)).Extract(context.Background(), domain.Chunk{ID: "s#0", Text: long})
	require.NoError(t, err)
	require.Len(t, llm.prompts, 1)
	assert.NotContains(t, llm.prompts[0], "TAIL")
	assert.Contains(t, llm.prompts[0], strings.Repeat("a", 100)+"...")
}

func TestExtractor_CustomPrompt(t *testing.T) {
	llm := &mockLLMService{respond: func(_ context.Context, _ string) (string, error) { return appleExtractionJSON, nil }}
	e := newTestExtractor(llm)
	e.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptExtraction: "CUSTOM %s | %s | %s",
	}})

	_, err := e.Extract(context.Background(), appleChunk())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(llm.prompts[0], "CUSTOM "))
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

func record(sourceID string, i int, vec ...float32) domain.EmbeddingRecord {
	id := domain.ChunkID(sourceID, i)
	return domain.EmbeddingRecord{
		ChunkID:  id,
		Vector:   vec,
		Metadata: domain.ChunkMetadata{SourceID: sourceID, ChunkID: id, Text: "chunk " + id},
	}
}

func TestVectorStore_EmptyQuery(t *testing.T) {
	s := NewVectorStore(3)

	hits, err := s.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NotNil(t, hits)
}

func TestVectorStore_RankingAndTies(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(2)
	require.NoError(t, s.Upsert(ctx, record("a", 0, 1, 0)))
	require.NoError(t, s.Upsert(ctx, record("b", 0, 0, 1)))
	require.NoError(t, s.Upsert(ctx, record("c", 0, 2, 0)))
	require.NoError(t, s.Upsert(ctx, record("d", 0, -1, 0)))

	hits, err := s.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	assert.Equal(t, "a#0", hits[0].ChunkID)
	assert.Equal(t, "c#0", hits[1].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.Equal(t, "b#0", hits[2].ChunkID)
	assert.Equal(t, "d#0", hits[3].ChunkID)
	assert.Equal(t, 0.0, hits[3].Similarity)
}

func TestVectorStore_OverwriteKeepsSequence(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(2)
	require.NoError(t, s.Upsert(ctx, record("a", 0, 1, 0)))
	require.NoError(t, s.Upsert(ctx, record("b", 0, 1, 0)))
	require.NoError(t, s.Upsert(ctx, record("a", 0, 1, 0)))

	hits, err := s.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "a#0", hits[0].ChunkID)
	assert.Equal(t, "b#0", hits[1].ChunkID)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Embeddings)
}

func TestVectorStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(0)
	require.NoError(t, s.Upsert(ctx, record("a", 0, 1, 0, 0)))
	assert.Equal(t, 3, s.Dimensions())

	err := s.Upsert(ctx, record("a", 1, 1, 0))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = s.Query(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorStore_DeleteBySourceAndStats(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(2)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Upsert(ctx, record("a", i, 1, float32(i))))
	}
	require.NoError(t, s.Upsert(ctx, record("b", 0, 0, 1)))

	n, err := s.DeleteBySource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.VectorStats{Embeddings: 1, Sources: 1, Dimensions: 2, Backend: "memory"}, stats)
}

func TestVectorStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(2)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Upsert(ctx, record(fmt.Sprintf("s%d", i%10), i, 1, float32(i))))
		}()
	}
	wg.Wait()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, stats.Embeddings)
	assert.Equal(t, 10, stats.Sources)
}

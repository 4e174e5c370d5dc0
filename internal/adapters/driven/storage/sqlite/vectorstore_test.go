package sqlite

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
		Metadata: domain.ChunkMetadata{SourceID: sourceID, ChunkID: id, Locator: sourceID + ".txt", Text: "chunk " + id},
	}
}

func setupVectors(t *testing.T, dims int) *VectorStore {
	t.Helper()
	v, err := setupTestStore(t).VectorStore(context.Background(), dims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestVectorStore_EmptyQuery(t *testing.T) {
	v := setupVectors(t, 3)

	hits, err := v.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NotNil(t, hits)
}

func TestVectorStore_RankingAndTies(t *testing.T) {
	ctx := context.Background()
	v := setupVectors(t, 2)
	require.NoError(t, v.Upsert(ctx, record("a", 0, 1, 0)))
	require.NoError(t, v.Upsert(ctx, record("b", 0, 0, 1)))
	require.NoError(t, v.Upsert(ctx, record("c", 0, 2, 0)))
	require.NoError(t, v.Upsert(ctx, record("d", 0, -1, 0)))

	hits, err := v.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	assert.Equal(t, "a#0", hits[0].ChunkID)
	assert.Equal(t, "c#0", hits[1].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.Equal(t, "b#0", hits[2].ChunkID)
	assert.Equal(t, "d#0", hits[3].ChunkID)
	assert.Equal(t, 0.0, hits[3].Similarity)

	assert.Equal(t, domain.ChunkMetadata{SourceID: "a", ChunkID: "a#0", Locator: "a.txt", Text: "chunk a#0"}, hits[0].Metadata)
}

func TestVectorStore_OverwriteKeepsSequence(t *testing.T) {
	ctx := context.Background()
	v := setupVectors(t, 2)
	require.NoError(t, v.Upsert(ctx, record("a", 0, 1, 0)))
	require.NoError(t, v.Upsert(ctx, record("b", 0, 1, 0)))
	require.NoError(t, v.Upsert(ctx, record("a", 0, 1, 0)))

	hits, err := v.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "a#0", hits[0].ChunkID)
	assert.Equal(t, "b#0", hits[1].ChunkID)

	stats, err := v.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Embeddings)
}

func TestVectorStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	v := setupVectors(t, 0)
	require.NoError(t, v.Upsert(ctx, record("a", 0, 1, 0, 0)))
	assert.Equal(t, 3, v.Dimensions())

	err := v.Upsert(ctx, record("a", 1, 1, 0))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = v.Query(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorStore_DimensionsPersist(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	v, err := store.VectorStore(ctx, 4)
	require.NoError(t, err)
	require.NoError(t, v.Close())

	reopened, err := store.VectorStore(ctx, 0)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, 4, reopened.Dimensions())

	_, err = store.VectorStore(ctx, 8)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorStore_InvalidRecord(t *testing.T) {
	v := setupVectors(t, 2)

	err := v.Upsert(context.Background(), domain.EmbeddingRecord{ChunkID: "x#0"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorStore_DeleteBySourceAndStats(t *testing.T) {
	ctx := context.Background()
	v := setupVectors(t, 2)
	for i := 0; i < 3; i++ {
		require.NoError(t, v.Upsert(ctx, record("a", i, 1, float32(i))))
	}
	require.NoError(t, v.Upsert(ctx, record("b", 0, 0, 1)))

	n, err := v.DeleteBySource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stats, err := v.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.VectorStats{Embeddings: 1, Sources: 1, Dimensions: 2, Backend: "sqlite"}, stats)
}

func TestVectorStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	v := setupVectors(t, 2)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, v.Upsert(ctx, record(fmt.Sprintf("s%d", i%4), i, 1, float32(i))))
		}()
	}
	wg.Wait()

	stats, err := v.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, stats.Embeddings)
	assert.Equal(t, 4, stats.Sources)
}

func TestVectorStore_QueryDuringReingest(t *testing.T) {
	ctx := context.Background()
	v := setupVectors(t, 2)
	for i := 0; i < 50; i++ {
		require.NoError(t, v.Upsert(ctx, record("doc", i, 1, float32(i))))
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := v.DeleteBySource(ctx, "doc"); err != nil {
				t.Errorf("delete: %v", err)
				return
			}
			for i := 0; i < 50; i++ {
				if err := v.Upsert(ctx, record("doc", i, 1, float32(i))); err != nil {
					t.Errorf("upsert: %v", err)
					return
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 300; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := v.Query(ctx, []float32{1, 0}, 5)
			if !assert.NoError(t, err) {
				return
			}
			for _, h := range hits {
				assert.Equal(t, "doc", h.Metadata.SourceID)
				assert.Equal(t, "chunk "+h.ChunkID, h.Metadata.Text)
			}
		}()
	}
	wg.Wait()
	close(stop)
	<-done
}

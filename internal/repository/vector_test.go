//go:build integration

package repository

import (
	"context"
	"iter"
	"slices"
	"testing"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/embedding"
	"github.com/cjgv1809/Chat-with-PDF/internal/testutil"
	"github.com/cjgv1809/Chat-with-PDF/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vectorDims = 4

func record(docID string, seq int, text string, vec ...float32) vectorindex.Record {
	return vectorindex.Record{
		ID:         domain.ChunkVectorID(docID, seq),
		DocumentID: docID,
		Seq:        seq,
		Text:       text,
		Vector:     vec,
	}
}

func TestVectorRepository_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	repo := NewVectorRepository(setupPool(ctx, t), "test-index", vectorDims)

	require.NoError(t, repo.Upsert(ctx, "doc-1", []vectorindex.Record{
		record("doc-1", 0, "alpha", 1, 0, 0, 0),
		record("doc-1", 1, "beta", 0, 1, 0, 0),
		record("doc-1", 2, "alpha-ish", 0.9, 0.1, 0, 0),
	}))
	require.NoError(t, repo.Upsert(ctx, "doc-2", []vectorindex.Record{
		record("doc-2", 0, "other document", 1, 0, 0, 0),
	}))

	matches, err := repo.Query(ctx, "doc-1", []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "alpha", matches[0].Text)
	assert.Equal(t, "doc-1", matches[0].DocumentID)
	assert.Equal(t, 0, matches[0].Seq)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	assert.Equal(t, "alpha-ish", matches[1].Text)
	assert.Less(t, matches[1].Score, matches[0].Score)

	none, err := repo.Query(ctx, "missing", []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestVectorRepository_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewVectorRepository(setupPool(ctx, t), "test-index", vectorDims)

	require.NoError(t, repo.Upsert(ctx, "doc-1", []vectorindex.Record{record("doc-1", 0, "old", 1, 0, 0, 0)}))
	require.NoError(t, repo.Upsert(ctx, "doc-1", []vectorindex.Record{record("doc-1", 0, "new", 0, 1, 0, 0)}))

	stats, err := repo.DescribeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Namespaces["doc-1"])

	matches, err := repo.Query(ctx, "doc-1", []float32{0, 1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Text)
}

func TestVectorRepository_RejectsWrongDimensions(t *testing.T) {
	ctx := context.Background()
	repo := NewVectorRepository(setupPool(ctx, t), "test-index", vectorDims)

	err := repo.Upsert(ctx, "doc-1", []vectorindex.Record{record("doc-1", 0, "short", 1, 0)})
	assert.Error(t, err)
}

func TestVectorRepository_ZeroQueryVector(t *testing.T) {
	ctx := context.Background()
	repo := NewVectorRepository(setupPool(ctx, t), "test-index", vectorDims)

	require.NoError(t, repo.Upsert(ctx, "doc-1", []vectorindex.Record{
		record("doc-1", 1, "second", 0, 1, 0, 0),
		record("doc-1", 0, "first", 1, 0, 0, 0),
	}))

	matches, err := repo.Query(ctx, "doc-1", []float32{0, 0, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].Text)
	assert.Equal(t, float32(0), matches[0].Score)
}

func TestVectorRepository_NamespacesAndIndexesAreIsolated(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewVectorRepository(pool, "index-a", vectorDims)
	other := NewVectorRepository(pool, "index-b", vectorDims)

	require.NoError(t, repo.Upsert(ctx, "doc-1", []vectorindex.Record{record("doc-1", 0, "a", 1, 0, 0, 0)}))
	require.NoError(t, other.Upsert(ctx, "doc-1", []vectorindex.Record{record("doc-1", 0, "b", 1, 0, 0, 0)}))

	exists, err := repo.HasNamespace(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.DeleteAll(ctx, "doc-1"))
	require.NoError(t, repo.DeleteAll(ctx, "never-existed"))

	exists, err = repo.HasNamespace(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = other.HasNamespace(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestVectorRepository_WithManager(t *testing.T) {
	ctx := context.Background()
	const dims = 64
	repo := NewVectorRepository(setupPool(ctx, t), "docchat", dims)
	embedder := embedding.NewService(testutil.NewKeywordEmbedder(dims), embedding.Config{Dimensions: dims})
	manager := vectorindex.NewManager(repo, embedder)

	chunks := []domain.Chunk{
		{DocumentID: "doc-1", Seq: 0, Text: "The invoice total is 420 euros."},
		{DocumentID: "doc-1", Seq: 1, Text: "Payment is due within thirty days."},
		{DocumentID: "doc-1", Seq: 2, Text: "Late payment incurs a fee."},
	}
	source := func(context.Context) (iter.Seq[domain.Chunk], error) {
		return slices.Values(chunks), nil
	}

	_, result, err := manager.EnsureIngested(ctx, "doc-1", source)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Chunks)
	assert.False(t, result.Skipped)

	_, again, err := manager.EnsureIngested(ctx, "doc-1", source)
	require.NoError(t, err)
	assert.True(t, again.Skipped)

	handle, err := manager.Open(ctx, "doc-1")
	require.NoError(t, err)
	hits, err := handle.Similar(ctx, "invoice total", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0, hits[0].Seq)

	require.NoError(t, manager.DeleteNamespace(ctx, "doc-1"))
	_, err = manager.Open(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNamespaceNotFound)
}

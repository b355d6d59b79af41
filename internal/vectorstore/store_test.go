package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avishkar74/AskTube/internal/domain"
	"github.com/Avishkar74/AskTube/internal/embedding"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), embedding.NewHashingEmbedder())
}

func ptr(f float64) *float64 { return &f }

func timedChunks() []domain.Chunk {
	return []domain.Chunk{
		{ChunkID: 1, Text: "intro about neural networks", StartSec: ptr(0), EndSec: ptr(10)},
		{ChunkID: 2, Text: "gradient descent explained", StartSec: ptr(10), EndSec: ptr(20)},
		{ChunkID: 3, Text: "closing remarks and summary", StartSec: ptr(20), EndSec: ptr(30)},
	}
}

func TestBuildThenHasIndexAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.False(t, s.HasIndex("vid1"))
	require.NoError(t, s.Build(ctx, "vid1", timedChunks(), "hash-a"))

	assert.True(t, s.HasIndex("vid1"))
	assert.Equal(t, Stats{ChunkCount: 3}, s.Stats("vid1"))
	assert.Equal(t, "hash-a", s.ContentHash("vid1"))
}

func TestBuildEmptyChunksFails(t *testing.T) {
	s := newTestStore(t)

	err := s.Build(context.Background(), "vid1", nil, "h")
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestBuildReplacesPriorIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Build(ctx, "vid1", timedChunks(), "hash-a"))
	require.NoError(t, s.Build(ctx, "vid1", timedChunks()[:1], "hash-b"))

	assert.Equal(t, Stats{ChunkCount: 1}, s.Stats("vid1"))
	assert.Equal(t, "hash-b", s.ContentHash("vid1"))
}

func TestListAllRoundTrip(t *testing.T) {
	s := newTestStore(t)
	chunks := timedChunks()
	require.NoError(t, s.Build(context.Background(), "vid1", chunks, "h"))

	all := s.ListAll("vid1")
	require.Len(t, all, len(chunks))
	for i, r := range all {
		assert.Equal(t, chunks[i].ChunkID, r.ChunkID)
		assert.Equal(t, chunks[i].Text, r.Text)
		assert.Equal(t, *chunks[i].StartSec, *r.StartSec)
		assert.Equal(t, *chunks[i].EndSec, *r.EndSec)
		assert.Nil(t, r.Score)
	}
}

func TestSearchRanksMatchingChunkFirst(t *testing.T) {
	s := newTestStore(t)
	emb := embedding.NewHashingEmbedder()
	ctx := context.Background()
	require.NoError(t, s.Build(ctx, "vid1", timedChunks(), "h"))

	query, err := emb.EmbedOne(ctx, "explain gradient descent")
	require.NoError(t, err)

	results := s.Search("vid1", query, 2)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].ChunkID)
	require.NotNil(t, results[0].Score)
	require.NotNil(t, results[1].Score)
	assert.GreaterOrEqual(t, *results[0].Score, *results[1].Score)
}

func TestSearchClampsTopK(t *testing.T) {
	s := newTestStore(t)
	emb := embedding.NewHashingEmbedder()
	ctx := context.Background()
	require.NoError(t, s.Build(ctx, "vid1", timedChunks(), "h"))

	query, err := emb.EmbedOne(ctx, "anything")
	require.NoError(t, err)

	results := s.Search("vid1", query, 50)
	assert.Len(t, results, 3, "top_k larger than chunk count returns all chunks")
}

func TestSearchMissingIndexReturnsEmpty(t *testing.T) {
	s := newTestStore(t)

	assert.Empty(t, s.Search("nope", []float64{1, 0}, 5))
	assert.Empty(t, s.ListAll("nope"))
	assert.Empty(t, s.GetByTimestamp("nope", 10, 1))
	assert.Equal(t, Stats{}, s.Stats("nope"))
}

func TestGetByTimestampContainment(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Build(context.Background(), "vid1", timedChunks(), "h"))

	results := s.GetByTimestamp("vid1", 15, 0)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].ChunkID)
	assert.Nil(t, results[0].Score)
}

func TestGetByTimestampWindowExpansion(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Build(context.Background(), "vid1", timedChunks(), "h"))

	results := s.GetByTimestamp("vid1", 15, 1)
	require.Len(t, results, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{results[0].ChunkID, results[1].ChunkID, results[2].ChunkID},
		"window neighbors come back in chunk_id order")
}

func TestGetByTimestampNearestStartFallback(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Build(context.Background(), "vid1", timedChunks(), "h"))

	// Before any chunk: nearest start wins.
	results := s.GetByTimestamp("vid1", -5, 0)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ChunkID)

	// Past the end: last chunk wins.
	results = s.GetByTimestamp("vid1", 500, 0)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].ChunkID)
}

func TestGetByTimestampWindowClampedToBounds(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Build(context.Background(), "vid1", timedChunks(), "h"))

	results := s.GetByTimestamp("vid1", 5, 10)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0].ChunkID)
}

func TestGetByTimestampNoTimingReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	chunks := []domain.Chunk{
		{ChunkID: 1, Text: "untimed chunk"},
		{ChunkID: 2, Text: "another untimed chunk"},
	}
	require.NoError(t, s.Build(context.Background(), "vid1", chunks, "h"))

	assert.Empty(t, s.GetByTimestamp("vid1", 10, 1))
}

func TestCorruptMetadataReadsAsNoIndex(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, embedding.NewHashingEmbedder())
	require.NoError(t, s.Build(context.Background(), "vid1", timedChunks(), "h"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "vid1.meta.json"), []byte("{not json"), 0o644))

	assert.Equal(t, Stats{}, s.Stats("vid1"))
	assert.Empty(t, s.Search("vid1", []float64{1}, 5))
	assert.Empty(t, s.ListAll("vid1"))
	assert.Empty(t, s.GetByTimestamp("vid1", 5, 1))
}

func TestCorruptIndexFileReadsAsNoIndexForSearch(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, embedding.NewHashingEmbedder())
	require.NoError(t, s.Build(context.Background(), "vid1", timedChunks(), "h"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "vid1.index"), []byte("garbage"), 0o644))

	assert.Empty(t, s.Search("vid1", []float64{1, 0}, 5))
}

func TestMissingHalfImpliesNoIndex(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, embedding.NewHashingEmbedder())
	require.NoError(t, s.Build(context.Background(), "vid1", timedChunks(), "h"))

	require.NoError(t, os.Remove(filepath.Join(dir, "vid1.index")))

	assert.False(t, s.HasIndex("vid1"))
	assert.Empty(t, s.ListAll("vid1"))
	assert.Equal(t, Stats{}, s.Stats("vid1"))
}

func TestIndexFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.index")
	in := [][]float64{{0.25, -1, 0.5}, {1, 2, 3}}

	require.NoError(t, writeIndexFile(path, in))
	out, err := readIndexFile(path)
	require.NoError(t, err)

	require.Len(t, out, 2)
	for i := range in {
		for j := range in[i] {
			assert.InDelta(t, in[i][j], out[i][j], 1e-6)
		}
	}
}

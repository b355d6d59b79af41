package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avishkar74/AskTube/internal/domain"
	"github.com/Avishkar74/AskTube/internal/embedding"
	"github.com/Avishkar74/AskTube/internal/vectorstore"
)

func newTestIndexer(t *testing.T) (*Indexer, *vectorstore.Store) {
	t.Helper()
	store := vectorstore.NewStore(t.TempDir(), embedding.NewHashingEmbedder())
	return New(store, nil, nil), store
}

func TestIndexTranscriptFromText(t *testing.T) {
	ix, store := newTestIndexer(t)

	res, err := ix.IndexTranscript(context.Background(), "vid1", "First sentence here. Second sentence here.", nil, false)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Positive(t, res.ChunkCount)
	assert.True(t, store.HasIndex("vid1"))
	assert.Equal(t, res.ContentHash, store.ContentHash("vid1"))
}

func TestIndexTranscriptPrefersSegments(t *testing.T) {
	ix, store := newTestIndexer(t)
	segments := []domain.Segment{
		{Text: "intro to the talk", Start: 0, Duration: 10},
		{Text: "the main argument", Start: 10, Duration: 20},
	}

	_, err := ix.IndexTranscript(context.Background(), "vid1", "plain text ignored when segments exist", segments, false)
	require.NoError(t, err)

	chunks := store.ListAll("vid1")
	require.NotEmpty(t, chunks)
	assert.NotNil(t, chunks[0].StartSec, "segment-built chunks carry timing")
}

func TestIndexTranscriptSkipsUnchangedContent(t *testing.T) {
	ix, _ := newTestIndexer(t)
	text := "Stable content. It does not change."

	first, err := ix.IndexTranscript(context.Background(), "vid1", text, nil, false)
	require.NoError(t, err)
	require.False(t, first.Skipped)

	second, err := ix.IndexTranscript(context.Background(), "vid1", text, nil, false)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.ChunkCount, second.ChunkCount)
}

func TestIndexTranscriptRebuildsOnChangedContent(t *testing.T) {
	ix, _ := newTestIndexer(t)

	_, err := ix.IndexTranscript(context.Background(), "vid1", "Old content lives here.", nil, false)
	require.NoError(t, err)

	res, err := ix.IndexTranscript(context.Background(), "vid1", "New content replaces it.", nil, false)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
}

func TestIndexTranscriptForceRebuilds(t *testing.T) {
	ix, _ := newTestIndexer(t)
	text := "Same content. Forced anyway."

	_, err := ix.IndexTranscript(context.Background(), "vid1", text, nil, false)
	require.NoError(t, err)

	res, err := ix.IndexTranscript(context.Background(), "vid1", text, nil, true)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
}

func TestIndexTranscriptEmptyContent(t *testing.T) {
	ix, _ := newTestIndexer(t)

	_, err := ix.IndexTranscript(context.Background(), "vid1", "   ", nil, false)
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestContentHashIgnoresSegmentTiming(t *testing.T) {
	a := []domain.Segment{{Text: "hello", Start: 0, Duration: 5}}
	b := []domain.Segment{{Text: "hello", Start: 99, Duration: 1}}

	assert.Equal(t, ContentHash("", a), ContentHash("", b))
	assert.NotEqual(t, ContentHash("", a), ContentHash("other", nil))
}

// Package indexer turns a transcript into a persisted vector index. It
// owns the chunking decision (time-coded segments beat plain text) and
// the content-hash check that makes re-indexing an unchanged transcript
// a no-op.
package indexer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Avishkar74/AskTube/internal/chunker"
	"github.com/Avishkar74/AskTube/internal/domain"
	"github.com/Avishkar74/AskTube/internal/logger"
	"github.com/Avishkar74/AskTube/internal/vectorstore"
)

// Indexer builds document indexes through a vector store.
type Indexer struct {
	store          *vectorstore.Store
	textChunker    *chunker.TextChunker
	segmentChunker *chunker.SegmentChunker
}

// New creates an indexer. Nil chunkers fall back to default budgets.
func New(store *vectorstore.Store, text *chunker.TextChunker, segments *chunker.SegmentChunker) *Indexer {
	if text == nil {
		text = chunker.NewTextChunker(chunker.DefaultTargetTokens, chunker.DefaultOverlapTokens)
	}
	if segments == nil {
		segments = chunker.NewSegmentChunker(chunker.DefaultSegmentChars)
	}
	return &Indexer{store: store, textChunker: text, segmentChunker: segments}
}

// Result reports what IndexTranscript did.
type Result struct {
	DocumentID  string
	ChunkCount  int
	ContentHash string
	Skipped     bool
}

// IndexTranscript chunks, embeds and persists a transcript. Time-coded
// segments are preferred over plain text so chunks carry timing metadata.
// When an index already exists for the same content hash the build is
// skipped unless force is set. A transcript that chunks to nothing fails
// with ErrEmptyContent.
func (ix *Indexer) IndexTranscript(ctx context.Context, documentID, text string, segments []domain.Segment, force bool) (Result, error) {
	hash := ContentHash(text, segments)
	res := Result{DocumentID: documentID, ContentHash: hash}

	if !force && ix.store.HasIndex(documentID) && ix.store.ContentHash(documentID) == hash {
		res.Skipped = true
		res.ChunkCount = ix.store.Stats(documentID).ChunkCount
		logger.Debug("index for %s is up to date, skipping", documentID)
		return res, nil
	}

	var chunks []domain.Chunk
	if len(segments) > 0 {
		chunks = ix.segmentChunker.Chunk(segments)
	} else {
		chunks = ix.textChunker.Chunk(text)
	}
	if len(chunks) == 0 {
		return res, fmt.Errorf("index %s: %w", documentID, domain.ErrEmptyContent)
	}

	if err := ix.store.Build(ctx, documentID, chunks, hash); err != nil {
		return res, fmt.Errorf("index %s: %w", documentID, err)
	}
	res.ChunkCount = len(chunks)
	logger.Info("indexed %s: %d chunks", documentID, len(chunks))
	return res, nil
}

// ContentHash fingerprints transcript content. Segments contribute their
// text only, so re-timed but otherwise identical transcripts hash equal.
func ContentHash(text string, segments []domain.Segment) string {
	h := sha1.New()
	if len(segments) > 0 {
		for _, seg := range segments {
			h.Write([]byte(seg.Text))
			h.Write([]byte{'\n'})
		}
	} else {
		h.Write([]byte(strings.TrimSpace(text)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

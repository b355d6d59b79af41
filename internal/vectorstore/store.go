// Package vectorstore persists one exact inner-product index per document:
// a binary vector file plus a JSON metadata file listing chunk records in
// chunk-id order. Absence or corruption of either artifact reads as "no
// index" so callers can fall back to non-retrieval answering.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/Avishkar74/AskTube/internal/domain"
	"github.com/Avishkar74/AskTube/internal/logger"
)

// Store owns the shared index directory and embeds chunk texts on build.
type Store struct {
	dir      string
	embedder domain.Embedder
}

// Stats reports per-document index statistics.
type Stats struct {
	ChunkCount int `json:"chunk_count"`
}

// metadata is the JSON artifact stored next to the vector file.
type metadata struct {
	DocumentID  string         `json:"document_id"`
	ContentHash string         `json:"content_hash"`
	Chunks      []domain.Chunk `json:"chunks"`
}

// NewStore creates a store rooted at dir. The directory is created on the
// first build.
func NewStore(dir string, embedder domain.Embedder) *Store {
	return &Store{dir: dir, embedder: embedder}
}

func (s *Store) paths(documentID string) (indexPath, metaPath string) {
	return filepath.Join(s.dir, documentID+".index"),
		filepath.Join(s.dir, documentID+".meta.json")
}

// Build embeds all chunk texts and persists a fresh index plus metadata for
// the document, replacing any prior index. Build failures are fatal; there
// is nothing to degrade to at indexing time.
func (s *Store) Build(ctx context.Context, documentID string, chunks []domain.Chunk, contentHash string) error {
	if len(chunks) == 0 {
		return domain.ErrEmptyContent
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	indexPath, metaPath := s.paths(documentID)
	if err := writeIndexFile(indexPath, vectors); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := writeMetaFile(metaPath, metadata{
		DocumentID:  documentID,
		ContentHash: contentHash,
		Chunks:      chunks,
	}); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// HasIndex reports whether both persistence artifacts exist for a document,
// without loading their content.
func (s *Store) HasIndex(documentID string) bool {
	indexPath, metaPath := s.paths(documentID)
	if _, err := os.Stat(indexPath); err != nil {
		return false
	}
	if _, err := os.Stat(metaPath); err != nil {
		return false
	}
	return true
}

// ContentHash returns the transcript hash stored with the document's index,
// or "" when no readable index exists.
func (s *Store) ContentHash(documentID string) string {
	meta, err := s.loadMeta(documentID)
	if err != nil {
		return ""
	}
	return meta.ContentHash
}

// Stats returns the chunk count for a document, zero when no readable index
// exists.
func (s *Store) Stats(documentID string) Stats {
	meta, err := s.loadMeta(documentID)
	if err != nil {
		return Stats{}
	}
	return Stats{ChunkCount: len(meta.Chunks)}
}

// Search runs an exact nearest-neighbor scan and returns up to topK results
// ordered by descending cosine similarity. topK is clamped to the stored
// chunk count; a missing or corrupt index yields an empty result set.
func (s *Store) Search(documentID string, queryVector []float64, topK int) []domain.RetrievalResult {
	vectors, meta, err := s.load(documentID)
	if err != nil {
		logIndexMiss("search", documentID, err)
		return nil
	}
	if topK <= 0 {
		topK = 5
	}
	if topK > len(vectors) {
		topK = len(vectors)
	}

	type scored struct {
		i     int
		score float64
	}
	scores := make([]scored, len(vectors))
	for i, vec := range vectors {
		scores[i] = scored{i, dot(vec, queryVector)}
	}
	sort.Slice(scores, func(a, b int) bool { return scores[a].score > scores[b].score })

	results := make([]domain.RetrievalResult, 0, topK)
	for _, sc := range scores[:topK] {
		ch := meta.Chunks[sc.i]
		score := sc.score
		results = append(results, domain.RetrievalResult{
			ChunkID:  ch.ChunkID,
			Text:     ch.Text,
			Score:    &score,
			StartSec: ch.StartSec,
			EndSec:   ch.EndSec,
		})
	}
	return results
}

// GetByTimestamp locates the chunk whose time interval contains timeSec,
// falling back to the chunk with the closest start time, then expands the
// hit by window chunks on each side. Results come back in chunk-id order
// with nil scores; ordering is positional, not ranked.
func (s *Store) GetByTimestamp(documentID string, timeSec float64, window int) []domain.RetrievalResult {
	meta, err := s.loadMeta(documentID)
	if err != nil {
		logIndexMiss("timestamp lookup", documentID, err)
		return nil
	}
	chunks := meta.Chunks
	if len(chunks) == 0 {
		return nil
	}

	hit := -1
	for i, ch := range chunks {
		if ch.StartSec != nil && ch.EndSec != nil && *ch.StartSec <= timeSec && timeSec <= *ch.EndSec {
			hit = i
			break
		}
	}
	if hit == -1 {
		// Nearest start time; ties keep the lower chunk id.
		bestDelta := math.Inf(1)
		for i, ch := range chunks {
			if ch.StartSec == nil {
				continue
			}
			if delta := math.Abs(*ch.StartSec - timeSec); delta < bestDelta {
				bestDelta = delta
				hit = i
			}
		}
		if hit == -1 {
			return nil
		}
	}

	if window < 0 {
		window = 0
	}
	lo := hit - window
	if lo < 0 {
		lo = 0
	}
	hi := hit + window
	if hi > len(chunks)-1 {
		hi = len(chunks) - 1
	}
	results := make([]domain.RetrievalResult, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		ch := chunks[i]
		results = append(results, domain.RetrievalResult{
			ChunkID:  ch.ChunkID,
			Text:     ch.Text,
			StartSec: ch.StartSec,
			EndSec:   ch.EndSec,
		})
	}
	return results
}

// ListAll enumerates every chunk of a document in chunk-id order. Used for
// inspection and debugging.
func (s *Store) ListAll(documentID string) []domain.RetrievalResult {
	meta, err := s.loadMeta(documentID)
	if err != nil {
		logIndexMiss("list", documentID, err)
		return nil
	}
	results := make([]domain.RetrievalResult, 0, len(meta.Chunks))
	for _, ch := range meta.Chunks {
		results = append(results, domain.RetrievalResult{
			ChunkID:  ch.ChunkID,
			Text:     ch.Text,
			StartSec: ch.StartSec,
			EndSec:   ch.EndSec,
		})
	}
	return results
}

// load reads both artifacts and cross-checks them. Any missing half maps to
// ErrIndexNotFound, any undecodable half to ErrCorruptIndex.
func (s *Store) load(documentID string) ([][]float64, *metadata, error) {
	meta, err := s.loadMeta(documentID)
	if err != nil {
		return nil, nil, err
	}
	indexPath, _ := s.paths(documentID)
	vectors, err := readIndexFile(indexPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, domain.ErrIndexNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	if len(vectors) != len(meta.Chunks) {
		return nil, nil, fmt.Errorf("%w: %d vectors vs %d chunk records",
			domain.ErrCorruptIndex, len(vectors), len(meta.Chunks))
	}
	return vectors, meta, nil
}

// loadMeta reads the metadata half. Either artifact missing means "no
// index", matching the two-file persistence contract.
func (s *Store) loadMeta(documentID string) (*metadata, error) {
	indexPath, metaPath := s.paths(documentID)
	if _, err := os.Stat(indexPath); err != nil {
		return nil, domain.ErrIndexNotFound
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, domain.ErrIndexNotFound
	}
	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	return &meta, nil
}

func writeMetaFile(path string, meta metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".meta-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func logIndexMiss(op, documentID string, err error) {
	if errors.Is(err, domain.ErrCorruptIndex) {
		logger.Warn("%s: treating corrupt index for %s as missing: %v", op, documentID, err)
		return
	}
	logger.Debug("%s: no index for %s", op, documentID)
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

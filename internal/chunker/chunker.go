// Package chunker splits transcripts into bounded retrieval chunks.
//
// Two paths exist: plain text is split on sentence boundaries and packed by
// an approximate token budget with sentence overlap between adjacent chunks;
// time-coded segments are packed by a character budget and carry start/end
// timing with no overlap.
package chunker

import (
	"regexp"
	"strings"

	"github.com/Avishkar74/AskTube/internal/domain"
)

// wordTokenRatio is the rough words-to-tokens conversion factor.
const wordTokenRatio = 0.75

// Default chunking budgets.
const (
	DefaultTargetTokens  = 220
	DefaultOverlapTokens = 40
	DefaultSegmentChars  = 800
)

// ApproxTokens estimates the token count of text from its word count.
func ApproxTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * wordTokenRatio)
}

var sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// splitSentences breaks text on terminal punctuation. Text without any
// terminal punctuation becomes a single sentence.
func splitSentences(text string) []string {
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TextChunker accumulates sentences into chunks bounded by an approximate
// token budget, seeding each new chunk with a trailing overlap of sentences
// from the previous one. Chunks from this path carry no timing metadata.
type TextChunker struct {
	targetTokens  int
	overlapTokens int
}

// NewTextChunker creates a text chunker. A non-positive target falls back
// to the default budget, a negative overlap to the default overlap; zero
// overlap is respected.
func NewTextChunker(targetTokens, overlapTokens int) *TextChunker {
	if targetTokens <= 0 {
		targetTokens = DefaultTargetTokens
	}
	if overlapTokens < 0 {
		overlapTokens = DefaultOverlapTokens
	}
	return &TextChunker{targetTokens: targetTokens, overlapTokens: overlapTokens}
}

// Chunk splits plain transcript text. Empty or whitespace-only input yields
// zero chunks.
func (c *TextChunker) Chunk(text string) []domain.Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	var cur []string
	curTokens := 0
	chunkID := 1

	flush := func() {
		chunks = append(chunks, domain.Chunk{
			ChunkID:       chunkID,
			Text:          strings.TrimSpace(strings.Join(cur, " ")),
			TokenEstimate: curTokens,
		})
		chunkID++
	}

	for _, sent := range sentences {
		sentTokens := ApproxTokens(sent)
		if len(cur) > 0 && curTokens+sentTokens > c.targetTokens {
			flush()
			if c.overlapTokens > 0 {
				// Walk backward until the overlap budget is exhausted.
				var tail []string
				tailTokens := 0
				for i := len(cur) - 1; i >= 0; i-- {
					t := ApproxTokens(cur[i])
					if tailTokens+t > c.overlapTokens {
						break
					}
					tail = append([]string{cur[i]}, tail...)
					tailTokens += t
				}
				cur = tail
				curTokens = tailTokens
			} else {
				cur = nil
				curTokens = 0
			}
		}
		cur = append(cur, sent)
		curTokens += sentTokens
	}
	if len(cur) > 0 {
		flush()
	}
	return chunks
}

// SegmentChunker packs consecutive time-coded segments into chunks bounded
// by a character budget. Each chunk spans from its first segment's start to
// its last segment's end; chunks are contiguous and non-overlapping in time.
type SegmentChunker struct {
	chunkChars int
}

// NewSegmentChunker creates a segment chunker. A non-positive budget falls
// back to the default character budget.
func NewSegmentChunker(chunkChars int) *SegmentChunker {
	if chunkChars <= 0 {
		chunkChars = DefaultSegmentChars
	}
	return &SegmentChunker{chunkChars: chunkChars}
}

// Chunk splits time-coded segments. Segments with empty text are skipped;
// a single segment longer than the budget is still emitted as its own chunk.
func (c *SegmentChunker) Chunk(segments []domain.Segment) []domain.Chunk {
	var chunks []domain.Chunk
	var acc []string
	accLen := 0
	var curStart, lastEnd *float64
	chunkID := 1

	flush := func() {
		text := strings.TrimSpace(strings.Join(acc, " "))
		chunks = append(chunks, domain.Chunk{
			ChunkID:       chunkID,
			Text:          text,
			StartSec:      curStart,
			EndSec:        lastEnd,
			TokenEstimate: ApproxTokens(text),
		})
		chunkID++
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		start := seg.Start
		end := seg.Start + seg.Duration
		if curStart == nil {
			curStart = &start
		}
		sep := 0
		if len(acc) > 0 {
			sep = 1
		}
		if len(acc) > 0 && accLen+len(text)+sep > c.chunkChars {
			flush()
			acc = nil
			accLen = 0
			curStart = &start
		}
		acc = append(acc, text)
		accLen += len(text) + sep
		e := end
		lastEnd = &e
	}
	if len(acc) > 0 {
		flush()
	}
	return chunks
}

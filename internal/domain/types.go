package domain

import "context"

// Segment is a time-coded piece of a transcript as delivered by the
// transcript source: raw caption text plus its start offset and duration.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Chunk is a bounded span of transcript text used as a retrieval unit.
// ChunkID is 1-based and strictly increasing within a document. Timing is
// only present when the chunk was built from time-coded segments.
type Chunk struct {
	ChunkID       int      `json:"chunk_id"`
	Text          string   `json:"text"`
	StartSec      *float64 `json:"start_sec"`
	EndSec        *float64 `json:"end_sec"`
	TokenEstimate int      `json:"token_estimate"`
}

// RetrievalResult is a chunk returned from the vector store. Score holds
// cosine similarity for semantic search and is nil for timestamp lookups,
// where ordering is positional rather than score-ranked.
type RetrievalResult struct {
	ChunkID  int      `json:"chunk_id"`
	Text     string   `json:"text"`
	Score    *float64 `json:"score"`
	StartSec *float64 `json:"start_sec"`
	EndSec   *float64 `json:"end_sec"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn. Citations are only set on
// assistant messages produced from retrieval context.
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp string            `json:"timestamp"`
	Citations []RetrievalResult `json:"citations,omitempty"`
}

// Conversation is the persisted history for one (user, document) pair.
type Conversation struct {
	UserID     string    `json:"user_id"`
	DocumentID string    `json:"document_id"`
	Messages   []Message `json:"messages"`
	Transcript string    `json:"transcript,omitempty"`
	CreatedAt  string    `json:"created_at"`
	UpdatedAt  string    `json:"updated_at"`
}

// Answer is the synthesizer output: the generated (or fallback) text,
// citations in prompt order when retrieval context was used, and a meta
// block describing how the answer was produced.
type Answer struct {
	Text      string            `json:"text"`
	Citations []RetrievalResult `json:"citations,omitempty"`
	Meta      AnswerMeta        `json:"meta"`
}

// AnswerMeta describes backend selection and retrieval parameters.
type AnswerMeta struct {
	Backend  string `json:"backend"`
	Model    string `json:"model"`
	UseRAG   bool   `json:"use_rag"`
	Fallback bool   `json:"fallback"`
	TopK     int    `json:"top_k,omitempty"`
	Window   int    `json:"window,omitempty"`
}

// Embedder converts free text into L2-normalized vectors, so inner product
// equals cosine similarity. Implementations are expensive to construct and
// cheap to invoke; callers share one instance per process.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	EmbedOne(ctx context.Context, text string) ([]float64, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

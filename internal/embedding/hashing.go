package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// HashingDimension is the fixed vector size of the hashing embedder.
const HashingDimension = 256

// HashingEmbedder is a deterministic, offline feature-hashing embedder.
// Tokens are hashed into a fixed number of buckets weighted by term
// frequency. It needs no network, no model files, and no corpus
// preparation, which makes it the fallback when neither Ollama nor the
// OpenAI API is reachable, and the workhorse for tests.
type HashingEmbedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
}

// NewHashingEmbedder creates a hashing embedder with HashingDimension buckets.
func NewHashingEmbedder() *HashingEmbedder {
	return &HashingEmbedder{
		dimension:    HashingDimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *HashingEmbedder) Name() string { return "hashing" }

// Embed returns one normalized vector per input text.
func (e *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

// EmbedOne returns a normalized vector for a single text.
func (e *HashingEmbedder) EmbedOne(_ context.Context, text string) ([]float64, error) {
	return e.embed(text), nil
}

func (e *HashingEmbedder) embed(text string) []float64 {
	vec := make([]float64, e.dimension)
	for _, tok := range e.tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dimension)]++
	}
	return Normalize(vec)
}

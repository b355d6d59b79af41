package embedding

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Avishkar74/AskTube/internal/domain"
)

// OpenAI embedder defaults.
const (
	DefaultOpenAIEmbedModel = "text-embedding-3-small"
	openaiAPIKeyEnv         = "OPENAI_API_KEY"
	openaiEmbedBatchSize    = 32
)

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// OpenAIEmbedderConfig configures the OpenAI embedder. APIKey falls back to
// the OPENAI_API_KEY environment variable; BaseURL allows pointing at an
// OpenAI-compatible server.
type OpenAIEmbedderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewOpenAIEmbedder creates an OpenAI embedder. The credential is resolved
// at construction time and a missing key is an immediate error.
func NewOpenAIEmbedder(cfg OpenAIEmbedderConfig) (*OpenAIEmbedder, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(openaiAPIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("missing %s in environment/.env", openaiAPIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIEmbedModel
	}

	clientConfig := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  openai.EmbeddingModel(cfg.Model),
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *OpenAIEmbedder) Name() string { return "openai" }

// Embed returns one normalized vector per input text, batched to bound
// request size.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += openaiEmbedBatchSize {
		end := start + openaiEmbedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: e.model,
			Input: texts[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
				domain.ErrEmbeddingUnavailable, len(resp.Data), end-start)
		}
		for _, item := range resp.Data {
			vec := make([]float64, len(item.Embedding))
			for i, v := range item.Embedding {
				vec[i] = float64(v)
			}
			vectors = append(vectors, Normalize(vec))
		}
	}
	return vectors, nil
}

// EmbedOne returns a normalized vector for a single text.
func (e *OpenAIEmbedder) EmbedOne(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

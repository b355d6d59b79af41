package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Avishkar74/AskTube/internal/domain"
	"github.com/Avishkar74/AskTube/internal/logger"
)

// OpenAI backend defaults. Rate-limit retries double the base delay on
// each attempt and add a small random jitter.
const (
	DefaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAIRetries    = 6
	defaultOpenAIBaseDelay  = 2 * time.Second
	openaiBackoffJitterSpan = 400 * time.Millisecond
	openaiAPIKeyEnv         = "OPENAI_API_KEY"
)

// OpenAIBackend generates text through the hosted OpenAI API.
type OpenAIBackend struct {
	client     *openai.Client
	model      string
	maxRetries int
	baseDelay  time.Duration
}

// OpenAIBackendConfig configures the hosted backend. APIKey falls back to
// the OPENAI_API_KEY environment variable; BaseURL allows pointing at an
// OpenAI-compatible server. MaxRetries and BaseDelay tune the rate-limit
// backoff and default to 6 attempts starting at 2s.
type OpenAIBackendConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	BaseDelay  time.Duration
}

// NewOpenAIBackend creates a hosted backend. The credential is resolved at
// construction time and a missing key is an immediate, descriptive error.
func NewOpenAIBackend(cfg OpenAIBackendConfig) (*OpenAIBackend, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(openaiAPIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("missing %s in environment/.env", openaiAPIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultOpenAIRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultOpenAIBaseDelay
	}

	clientConfig := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIBackend{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
	}, nil
}

// Name returns the backend kind.
func (b *OpenAIBackend) Name() string { return KindOpenAI }

// Model returns the configured model name.
func (b *OpenAIBackend) Model() string { return b.model }

// Generate produces a completion, retrying rate-limit signals with
// exponential backoff plus jitter. Other provider faults propagate
// immediately; exhausting the retry budget fails with
// ErrRateLimitExceeded.
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	}

	for attempt := 0; attempt < b.maxRetries; attempt++ {
		resp, err := b.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("%w: openai returned no choices", domain.ErrGeneration)
			}
			return resp.Choices[0].Message.Content, nil
		}
		if !isRateLimited(err) {
			return "", fmt.Errorf("%w: openai: %v", domain.ErrGeneration, err)
		}

		delay := b.baseDelay<<attempt + time.Duration(rand.Int63n(int64(openaiBackoffJitterSpan)))
		logger.Warn("rate limited, retrying in %s [%d/%d]", delay.Round(time.Millisecond), attempt+1, b.maxRetries)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", domain.ErrGeneration, ctx.Err())
		}
	}
	return "", domain.ErrRateLimitExceeded
}

// IsAvailable reports whether the hosted backend can plausibly serve: the
// credential was resolved at construction, so the probe never raises.
func (b *OpenAIBackend) IsAvailable(_ context.Context) bool {
	return b.client != nil
}

// isRateLimited reports whether a provider error is a rate-limit signal.
func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

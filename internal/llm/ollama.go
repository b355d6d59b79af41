package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Avishkar74/AskTube/internal/domain"
)

// Ollama backend defaults.
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "qwen2.5:7b"
	defaultOllamaTimeout = 120 * time.Second
	ollamaProbeTimeout   = 3 * time.Second
)

// OllamaBackend generates text through a locally hosted Ollama server.
type OllamaBackend struct {
	client  *http.Client
	baseURL string
	model   string
}

// OllamaBackendConfig configures the local backend; unset fields get
// defaults.
type OllamaBackendConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewOllamaBackend creates a local Ollama backend. Construction never
// probes the server; use IsAvailable for that.
func NewOllamaBackend(cfg OllamaBackendConfig) *OllamaBackend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultOllamaTimeout
	}
	return &OllamaBackend{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Name returns the backend kind.
func (b *OllamaBackend) Name() string { return KindOllama }

// Model returns the configured model name.
func (b *OllamaBackend) Model() string { return b.model }

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate produces a completion via /api/generate.
func (b *OllamaBackend) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	reqBody := ollamaGenerateRequest{Model: b.model, Prompt: prompt}
	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		reqBody.Options = &ollamaOptions{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ollama: %v", domain.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama status %d: %s", domain.ErrGeneration, resp.StatusCode, msg)
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("%w: decode ollama response: %v", domain.ErrGeneration, err)
	}
	if genResp.Response == "" {
		return "", fmt.Errorf("%w: ollama returned an empty response", domain.ErrGeneration)
	}
	return genResp.Response, nil
}

// IsAvailable probes the server by listing loaded models via /api/tags.
// Any connectivity fault reads as unavailable, never as an error.
func (b *OllamaBackend) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ollamaProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

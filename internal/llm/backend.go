// Package llm abstracts text generation over a closed set of providers: a
// local Ollama server and the hosted OpenAI API. Selection is a pure
// function from a requested kind to a constructor; auto-selection probes
// availability and falls over to the alternative kind.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Avishkar74/AskTube/internal/domain"
	"github.com/Avishkar74/AskTube/internal/logger"
)

// Backend kinds.
const (
	KindOllama = "ollama"
	KindOpenAI = "openai"
)

// GenerateOptions bounds a single generation call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// Backend is one text-generation provider. Generate fails with a wrapped
// domain.ErrGeneration on provider fault; IsAvailable probes the provider
// and never returns an error.
type Backend interface {
	Name() string
	Model() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	IsAvailable(ctx context.Context) bool
}

// Factory constructs backends from shared configuration. The zero value
// uses provider defaults.
type Factory struct {
	// OllamaBaseURL overrides the local server address.
	OllamaBaseURL string

	// OpenAIAPIKey overrides the env-resolved credential, OpenAIBaseURL
	// the API endpoint. Mostly used by tests.
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// Get constructs a backend of the given kind. An empty model selects the
// provider default; an unrecognized kind fails with ErrUnknownBackend.
func (f Factory) Get(kind, model string) (Backend, error) {
	switch strings.ToLower(kind) {
	case KindOllama:
		return NewOllamaBackend(OllamaBackendConfig{BaseURL: f.OllamaBaseURL, Model: model}), nil
	case KindOpenAI:
		return NewOpenAIBackend(OpenAIBackendConfig{
			APIKey:  f.OpenAIAPIKey,
			BaseURL: f.OpenAIBaseURL,
			Model:   model,
		})
	default:
		return nil, fmt.Errorf("%w: %q (use %q or %q)", domain.ErrUnknownBackend, kind, KindOllama, KindOpenAI)
	}
}

// AutoSelect tries the preferred kind first and falls back to the
// alternative, returning the first backend that responds to an
// availability probe. ErrNoBackendAvailable means neither did.
func (f Factory) AutoSelect(ctx context.Context, preferred, model string) (Backend, error) {
	order := []string{KindOllama, KindOpenAI}
	if strings.ToLower(preferred) == KindOpenAI {
		order = []string{KindOpenAI, KindOllama}
	}

	for _, kind := range order {
		backend, err := f.Get(kind, model)
		if err != nil {
			logger.Warn("%s backend not available: %v", kind, err)
			continue
		}
		if backend.IsAvailable(ctx) {
			logger.Info("using %s backend with model %s", kind, backend.Model())
			return backend, nil
		}
		logger.Warn("%s backend did not respond to availability probe", kind)
	}
	return nil, domain.ErrNoBackendAvailable
}

// Package config loads the application configuration from YAML, filling in
// defaults for anything the file leaves out.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig selects and configures the text embedder implementation.
// Type is one of "ollama", "openai" or "hashing".
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	Ollama *OllamaEmbedderConfig `yaml:"ollama,omitempty"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// OllamaEmbedderConfig holds connection details for a local Ollama server.
type OllamaEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIEmbedderConfig holds configuration for the hosted embedder. The key
// itself comes from the environment, never from the file.
type OpenAIEmbedderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ChunkerConfig configures how transcripts are split into chunks.
type ChunkerConfig struct {
	TargetTokens  int `yaml:"target_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
	SegmentChars  int `yaml:"segment_chars"`
}

// IndexConfig locates the per-document index files.
type IndexConfig struct {
	Dir string `yaml:"dir"`
}

// LLMConfig selects the generation backend. Backend is "ollama", "openai"
// or "" for auto-selection.
type LLMConfig struct {
	Backend       string `yaml:"backend"`
	Model         string `yaml:"model"`
	OllamaBaseURL string `yaml:"ollama_base_url"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
}

// ConversationConfig configures the persisted chat history.
type ConversationConfig struct {
	Dir        string `yaml:"dir"`
	MaxHistory int    `yaml:"max_history"`
}

// RetrievalConfig holds the retrieval defaults for answering.
type RetrievalConfig struct {
	UseRAG *bool `yaml:"use_rag,omitempty"`
	TopK   int   `yaml:"top_k"`
	Window int   `yaml:"window"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder     EmbedderConfig     `yaml:"embedder"`
	Chunker      ChunkerConfig      `yaml:"chunker"`
	Index        IndexConfig        `yaml:"index"`
	LLM          LLMConfig          `yaml:"llm"`
	Conversation ConversationConfig `yaml:"conversation"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
}

// UseRAGEnabled reports whether answering should retrieve chunks; an unset
// use_rag means yes.
func (c *RetrievalConfig) UseRAGEnabled() bool {
	return c.UseRAG == nil || *c.UseRAG
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./asktube.yaml first, then ~/.config/asktube/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "asktube.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "asktube", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{Type: "ollama"},
		Chunker:  ChunkerConfig{TargetTokens: 220, OverlapTokens: 40, SegmentChars: 800},
		Index:    IndexConfig{Dir: "data/index"},
		Conversation: ConversationConfig{
			Dir:        "data/conversations",
			MaxHistory: 10,
		},
		Retrieval: RetrievalConfig{TopK: 6, Window: 1},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	if cfg.Chunker.TargetTokens == 0 {
		cfg.Chunker.TargetTokens = 220
	}
	if cfg.Chunker.OverlapTokens == 0 {
		cfg.Chunker.OverlapTokens = 40
	}
	if cfg.Chunker.SegmentChars == 0 {
		cfg.Chunker.SegmentChars = 800
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "data/index"
	}
	if cfg.Conversation.Dir == "" {
		cfg.Conversation.Dir = "data/conversations"
	}
	if cfg.Conversation.MaxHistory == 0 {
		cfg.Conversation.MaxHistory = 10
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 6
	}
	if cfg.Retrieval.Window == 0 {
		cfg.Retrieval.Window = 1
	}
}

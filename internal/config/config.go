// Package config loads keepstack configuration from a TOML file with
// environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/keepstack/keepstack/internal/core/domain"
)

// Default values applied when the config file omits a setting.
const (
	DefaultListenAddr     = "127.0.0.1:8080"
	DefaultChunkSize      = 800
	DefaultChunkOverlap   = 100
	DefaultDebounceWait   = 2 * time.Second
	DefaultHistoryBudget  = 500
	DefaultSearchLimit    = 2
	DefaultEmbedBatchSize = 50
	DefaultEmbedRate      = 10 // requests per second
)

// Config is the full keepstack configuration tree.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Indexing IndexingConfig `toml:"indexing"`
	Chat     ChatConfig     `toml:"chat"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// ListenAddr is the host:port the API server binds to.
	ListenAddr string `toml:"listen_addr"`
}

// StorageConfig holds filesystem layout settings.
type StorageConfig struct {
	// DataDir is the directory for the SQLite database.
	// Defaults to ~/.keepstack/data.
	DataDir string `toml:"data_dir"`

	// AttachmentsDir is watched for dropped PDF attachments. Files must
	// be named <note-id>.pdf. Empty disables the watcher.
	AttachmentsDir string `toml:"attachments_dir"`
}

// OpenAIConfig holds credentials and model selection for the OpenAI API.
type OpenAIConfig struct {
	// APIKey authenticates against the API. The OPENAI_API_KEY
	// environment variable takes precedence over the file value.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the API endpoint for compatible providers.
	BaseURL string `toml:"base_url"`

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string `toml:"embedding_model"`

	// ChatModel is the generation model name.
	ChatModel string `toml:"chat_model"`
}

// IndexingConfig tunes the chunking and embedding pipeline.
type IndexingConfig struct {
	// ChunkSize is the maximum chunk length in bytes.
	ChunkSize int `toml:"chunk_size"`

	// ChunkOverlap is the number of bytes carried between adjacent chunks.
	ChunkOverlap int `toml:"chunk_overlap"`

	// DebounceWait is how long after the last edit a reindex fires.
	DebounceWait time.Duration `toml:"debounce_wait"`

	// EmbedBatchSize is the number of chunks persisted per batch.
	EmbedBatchSize int `toml:"embed_batch_size"`

	// EmbedRate limits embedding requests per second.
	EmbedRate int `toml:"embed_rate"`
}

// ChatConfig tunes the answering pipeline.
type ChatConfig struct {
	// HistoryBudget is the maximum token count of the assembled prompt.
	HistoryBudget int `toml:"history_budget"`

	// SearchLimit is how many chunks a similarity search returns.
	SearchLimit int `toml:"search_limit"`
}

// Load reads the config file at path, or ~/.keepstack/config.toml when
// path is empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".keepstack", "config.toml")
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No config file yet - run on defaults.
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued settings.
func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Indexing.ChunkSize == 0 {
		c.Indexing.ChunkSize = DefaultChunkSize
	}
	if c.Indexing.ChunkOverlap == 0 {
		c.Indexing.ChunkOverlap = DefaultChunkOverlap
	}
	if c.Indexing.DebounceWait == 0 {
		c.Indexing.DebounceWait = DefaultDebounceWait
	}
	if c.Indexing.EmbedBatchSize == 0 {
		c.Indexing.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if c.Indexing.EmbedRate == 0 {
		c.Indexing.EmbedRate = DefaultEmbedRate
	}
	if c.Chat.HistoryBudget == 0 {
		c.Chat.HistoryBudget = DefaultHistoryBudget
	}
	if c.Chat.SearchLimit == 0 {
		c.Chat.SearchLimit = DefaultSearchLimit
	}
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.OpenAI.APIKey = key
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.OpenAI.BaseURL = url
	}
}

// validate rejects settings the pipeline cannot run with.
func (c *Config) validate() error {
	if c.Indexing.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", domain.ErrInvalidConfig)
	}
	if c.Indexing.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative", domain.ErrInvalidConfig)
	}
	if c.Indexing.ChunkOverlap >= c.Indexing.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be smaller than chunk_size", domain.ErrInvalidConfig)
	}
	if c.Indexing.DebounceWait < 0 {
		return fmt.Errorf("%w: debounce_wait must not be negative", domain.ErrInvalidConfig)
	}
	if c.Chat.HistoryBudget <= 0 {
		return fmt.Errorf("%w: history_budget must be positive", domain.ErrInvalidConfig)
	}
	if c.Chat.SearchLimit <= 0 {
		return fmt.Errorf("%w: search_limit must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

// Package config provides configuration loading and structs for the Tayyib kiosk server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	EventMode   bool              `yaml:"event_mode"`
	DevMode     bool              `yaml:"dev_mode"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Completion  CompletionConfig  `yaml:"completion"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Routing     RoutingConfig     `yaml:"routing"`
	Privacy     PrivacyConfig     `yaml:"privacy"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig holds paths for the analytics database, the offline pack and the local vector index.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	OfflinePackPath string `yaml:"offline_pack_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
	// PassagesPath is a JSONL file of source passages ingested into an empty memory index at startup.
	PassagesPath string `yaml:"passages_path"`
}

// EmbeddingConfig selects and configures the query embedder.
type EmbeddingConfig struct {
	// Provider is one of openai, onnx, mock.
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// VectorIndexConfig selects the similarity index.
type VectorIndexConfig struct {
	// Type is one of memory, weaviate.
	Type      string `yaml:"type"`
	URL       string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	ClassName string `yaml:"class_name"`
}

// CompletionConfig holds the generative provider settings.
type CompletionConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	StreamDeadline time.Duration `yaml:"stream_deadline"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
	// MaxRetries is 0 or 1. Unset means 1.
	MaxRetries *int `yaml:"max_retries"`
}

// Retries returns the number of retries after a transient provider failure, clamped to [0,1].
func (c *CompletionConfig) Retries() int {
	if c.MaxRetries == nil {
		return 1
	}
	return min(max(*c.MaxRetries, 0), 1)
}

// RetrievalConfig holds similarity retrieval settings.
type RetrievalConfig struct {
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	CacheSize    int           `yaml:"cache_size"`
	SnippetChars int           `yaml:"snippet_chars"`
}

// RoutingConfig holds the thresholds and limits of the routing engine.
type RoutingConfig struct {
	OfflineThreshold      float64        `yaml:"offline_threshold"`
	GroundingThreshold    float64        `yaml:"grounding_threshold"`
	MinSources            int            `yaml:"min_sources"`
	MinSourceScore        float64        `yaml:"min_source_score"`
	OfflineTopK           int            `yaml:"offline_top_k"`
	RetrievalTopK         int            `yaml:"retrieval_top_k"`
	RetrievalTopKByLang   map[string]int `yaml:"retrieval_top_k_by_lang"`
	MaxHistoryMessages    int            `yaml:"max_history_messages"`
	MaxMessagesPerSession int            `yaml:"max_messages_per_session"`
	FragmentSize          int            `yaml:"fragment_size"`
	SuggestionLimit       int            `yaml:"suggestion_limit"`
	TagBonus              float64        `yaml:"tag_bonus"`
}

// TopKFor returns the retrieval top-k for lang, honoring per-language overrides.
func (r *RoutingConfig) TopKFor(lang string) int {
	if k, ok := r.RetrievalTopKByLang[strings.ToUpper(lang)]; ok && k > 0 {
		return k
	}
	return r.RetrievalTopK
}

// PrivacyConfig holds query hashing settings.
type PrivacyConfig struct {
	QueryHashSalt string `yaml:"query_hash_salt"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults and env overrides.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg, os.LookupEnv)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.OfflinePackPath = expandPath(cfg.Storage.OfflinePackPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.PassagesPath = expandPath(cfg.Storage.PassagesPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// Save writes the config to path. Used by "tayyib init" to write a starter config.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

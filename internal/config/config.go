// Package config provides configuration loading and structs for the Kotae server.
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
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CorpusConfig holds the FAQ corpus source settings.
type CorpusConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
	// WatchDebounce is how long to wait after the last file event before rebuilding.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// StorageConfig holds paths for the embeddings database and vector index.
type StorageConfig struct {
	EmbeddingsPath string `yaml:"embeddings_path"`
	IndexPath      string `yaml:"index_path"`
	// IndexType selects the vector index: "flat" (default) or "faiss".
	IndexType string `yaml:"index_type"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider selects the embedder: "mock", "onnx", or "openai".
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	// MaxConcurrent bounds simultaneous embedder invocations.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// SearchConfig holds matching and cache settings.
type SearchConfig struct {
	DefaultK            int           `yaml:"default_k"`
	MaxK                int           `yaml:"max_k"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	QueryCacheSize      int           `yaml:"query_cache_size"`
	QueryCacheTTL       time.Duration `yaml:"query_cache_ttl"`
	EmbeddingCacheSize  int           `yaml:"embedding_cache_size"`
	EmbeddingCacheTTL   time.Duration `yaml:"embedding_cache_ttl"`
}

// MetricsConfig holds observability settings.
type MetricsConfig struct {
	// LatencyWindow is how many recent request latencies the moving average keeps.
	LatencyWindow int `yaml:"latency_window"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
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

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Corpus.Path = expandPath(cfg.Corpus.Path, configDir)
	cfg.Storage.EmbeddingsPath = expandPath(cfg.Storage.EmbeddingsPath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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

package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "/usr/local/var/kotae/data/faq.json"
	}
	if cfg.Corpus.WatchDebounce == 0 {
		cfg.Corpus.WatchDebounce = 400 * time.Millisecond
	}
	if cfg.Storage.EmbeddingsPath == "" {
		cfg.Storage.EmbeddingsPath = "/usr/local/var/kotae/data/db/embeddings.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/kotae/data/indices/faq.idx"
	}
	if cfg.Storage.IndexType == "" {
		cfg.Storage.IndexType = "flat"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kotae/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.MaxConcurrent == 0 {
		cfg.Embedding.MaxConcurrent = 20
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 3
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 100
	}
	if cfg.Search.SimilarityThreshold == 0 {
		cfg.Search.SimilarityThreshold = 0.7
	}
	if cfg.Search.QueryCacheSize == 0 {
		cfg.Search.QueryCacheSize = 500
	}
	if cfg.Search.QueryCacheTTL == 0 {
		cfg.Search.QueryCacheTTL = 30 * time.Minute
	}
	if cfg.Search.EmbeddingCacheSize == 0 {
		cfg.Search.EmbeddingCacheSize = 1000
	}
	if cfg.Search.EmbeddingCacheTTL == 0 {
		cfg.Search.EmbeddingCacheTTL = time.Hour
	}
	if cfg.Metrics.LatencyWindow == 0 {
		cfg.Metrics.LatencyWindow = 1000
	}
}

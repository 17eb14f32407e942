package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
corpus:
  path: "/var/data/faq.json"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Corpus.Path != "/var/data/faq.json" {
		t.Errorf("corpus path = %q", cfg.Corpus.Path)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_appliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.DefaultK != 3 || cfg.Search.MaxK != 100 {
		t.Errorf("k defaults: %+v", cfg.Search)
	}
	if cfg.Search.SimilarityThreshold != 0.7 {
		t.Errorf("threshold default: %f", cfg.Search.SimilarityThreshold)
	}
	if cfg.Search.QueryCacheSize != 500 || cfg.Search.QueryCacheTTL != 30*time.Minute {
		t.Errorf("query cache defaults: %+v", cfg.Search)
	}
	if cfg.Search.EmbeddingCacheSize != 1000 || cfg.Search.EmbeddingCacheTTL != time.Hour {
		t.Errorf("embedding cache defaults: %+v", cfg.Search)
	}
	if cfg.Embedding.Provider != "onnx" || cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Embedding.MaxConcurrent != 20 {
		t.Errorf("max_concurrent default: %d", cfg.Embedding.MaxConcurrent)
	}
	if cfg.Storage.IndexType != "flat" {
		t.Errorf("index_type default: %q", cfg.Storage.IndexType)
	}
	if cfg.Metrics.LatencyWindow != 1000 {
		t.Errorf("latency_window default: %d", cfg.Metrics.LatencyWindow)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
corpus:
  path: "./data/faq.json"
storage:
  embeddings_path: "./data/db/embeddings.db"
  index_path: "./data/indices/faq.idx"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "data/faq.json")
	if cfg.Corpus.Path != want {
		t.Errorf("corpus path = %q, want %q", cfg.Corpus.Path, want)
	}
	if !filepath.IsAbs(cfg.Storage.EmbeddingsPath) || !filepath.IsAbs(cfg.Storage.IndexPath) {
		t.Errorf("storage paths should be absolute: %+v", cfg.Storage)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestLoad_watchSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
corpus:
  path: "/var/data/faq.json"
  watch: true
  watch_debounce: 2s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Corpus.Watch {
		t.Error("watch should be true")
	}
	if cfg.Corpus.WatchDebounce != 2*time.Second {
		t.Errorf("watch_debounce = %v, want 2s", cfg.Corpus.WatchDebounce)
	}
}

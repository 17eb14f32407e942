// Package engine orchestrates corpus, embedder, caches, and vector index to
// answer semantic FAQ match queries.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cache"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/gate"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrNotReady is returned when the engine has no built index yet, or the
// loaded index no longer matches the corpus. Rebuild is the only transition
// that clears it.
var ErrNotReady = errors.New("engine not ready: corpus and index must be built with Rebuild")

// Cache names used for metrics aggregation.
const (
	QueryCacheName     = "query"
	EmbeddingCacheName = "embedding"
)

// queryKey is the composite query-result cache key. Results for the same text
// under different k or threshold never share an entry: a looser threshold must
// not return a result suppressed by an earlier write under a stricter one.
type queryKey struct {
	text      string
	k         int
	threshold float64
}

// cachedResult is a completed search outcome, including explicit no-match.
// Cache absence means "not yet computed"; found=false means "computed, no match".
type cachedResult struct {
	found      bool
	similarity float64
	entryIndex int
}

func (r cachedResult) toMatch() *models.Match {
	if !r.found {
		return nil
	}
	return &models.Match{Similarity: r.similarity, EntryIndex: r.entryIndex}
}

// Engine is the semantic FAQ match engine. The corpus and vector index are
// read-only between rebuilds and shared by reference across concurrent
// searches; the two caches and the gate carry their own synchronization.
type Engine struct {
	cfg       *config.Config
	embedder  embedding.Embedder
	store     *storage.EmbeddingStore
	gate      *gate.Gate
	collector *metrics.Collector
	logger    *zap.Logger

	queryCache *cache.Cache[queryKey, cachedResult]
	embedCache *cache.Cache[string, []float32]

	mu     sync.RWMutex
	corpus *corpus.Corpus
	index  vector.Index
	ready  bool
}

// New creates an engine. store may be nil to disable embedding persistence.
// The engine is not ready until Start, Rebuild, or LoadIndex succeeds.
func New(
	cfg *config.Config,
	embedder embedding.Embedder,
	store *storage.EmbeddingStore,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:        cfg,
		embedder:   embedder,
		store:      store,
		gate:       gate.New(cfg.Embedding.MaxConcurrent),
		collector:  collector,
		logger:     logger,
		queryCache: cache.New[queryKey, cachedResult](cfg.Search.QueryCacheSize, cfg.Search.QueryCacheTTL),
		embedCache: cache.New[string, []float32](cfg.Search.EmbeddingCacheSize, cfg.Search.EmbeddingCacheTTL),
	}
}

// Start makes the engine ready, reusing persisted embeddings when they still
// match the corpus. Validity is the stored vector count against the current
// searchable-string count; any mismatch forces a full rebuild.
func (e *Engine) Start(ctx context.Context) error {
	crp, err := corpus.Load(e.cfg.Corpus.Path, e.logger)
	if err != nil {
		return err
	}

	if e.store != nil {
		if ok := e.warmStart(ctx, crp); ok {
			return nil
		}
	}
	return e.rebuildFrom(ctx, crp)
}

// warmStart tries to build the index from persisted embeddings. Returns false
// when the stored set is missing, stale, or unusable.
func (e *Engine) warmStart(ctx context.Context, crp *corpus.Corpus) bool {
	start := time.Now()
	_, vectors, err := e.store.LoadAll(ctx)
	if err != nil {
		e.logger.Warn("failed to load persisted embeddings, rebuilding", zap.Error(err))
		return false
	}
	if len(vectors) != crp.Size() {
		e.logger.Info("persisted embeddings stale, rebuilding",
			zap.Int("stored", len(vectors)),
			zap.Int("searchable_strings", crp.Size()))
		return false
	}
	if len(vectors) == 0 || len(vectors[0]) != e.embedder.Dimensions() {
		e.logger.Info("persisted embeddings have wrong dimensions, rebuilding")
		return false
	}

	idx, err := e.buildIndex(ctx, vectors)
	if err != nil {
		e.logger.Warn("failed to build index from persisted embeddings, rebuilding", zap.Error(err))
		return false
	}

	e.swap(crp, idx)
	e.logger.Info("engine started from persisted embeddings",
		zap.Int("vectors", len(vectors)),
		zap.Duration("startup_time", time.Since(start)))
	return true
}

// Rebuild loads the corpus, re-embeds every searchable string, builds a fresh
// index, persists it, and swaps it in atomically. Both caches are cleared:
// entry indexes are not stable across reloads.
func (e *Engine) Rebuild(ctx context.Context) error {
	crp, err := corpus.Load(e.cfg.Corpus.Path, e.logger)
	if err != nil {
		return err
	}
	return e.rebuildFrom(ctx, crp)
}

func (e *Engine) rebuildFrom(ctx context.Context, crp *corpus.Corpus) error {
	start := time.Now()
	texts := crp.Texts()

	vectors, err := e.embedAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed corpus: %w", err)
	}

	idx, err := e.buildIndex(ctx, vectors)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	// Persistence failures are logged but do not fail the rebuild; the engine
	// can serve from memory and re-embed on the next cold start.
	if e.store != nil {
		if err := e.store.ReplaceAll(ctx, texts, vectors); err != nil {
			e.logger.Warn("failed to persist embeddings", zap.Error(err))
		}
	}
	if e.cfg.Storage.IndexPath != "" {
		if err := idx.Save(e.cfg.Storage.IndexPath); err != nil {
			e.logger.Warn("failed to persist index", zap.Error(err))
		}
	}

	e.swap(crp, idx)
	e.logger.Info("index rebuilt",
		zap.Int("entries", len(crp.Entries)),
		zap.Int("vectors", len(vectors)),
		zap.Duration("rebuild_time", time.Since(start)))
	return nil
}

// buildIndex creates a fresh index of the configured type holding vectors.
func (e *Engine) buildIndex(ctx context.Context, vectors [][]float32) (vector.Index, error) {
	idx, err := vector.NewIndex(e.cfg.Storage.IndexType, e.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	if err := idx.Add(ctx, vectors); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// embedAll embeds texts in batches, bounding concurrent provider use via the gate.
func (e *Engine) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	const batchSize = 32
	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		if err := e.gate.Acquire(ctx); err != nil {
			return nil, err
		}
		batch, err := e.embedder.EmbedBatch(ctx, texts[i:end])
		e.gate.Release()
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// swap installs a new corpus and index and clears both caches.
func (e *Engine) swap(crp *corpus.Corpus, idx vector.Index) {
	e.mu.Lock()
	old := e.index
	e.corpus = crp
	e.index = idx
	e.ready = true
	e.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	e.queryCache.Clear()
	e.embedCache.Clear()
}

// IsReady reports whether the engine can serve searches.
func (e *Engine) IsReady() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// Search returns the best corpus entry for query, or nil when the query is
// blank or no candidate reaches threshold. Provider and index failures are
// returned as errors, distinct from a no-match result, and are never cached.
func (e *Engine) Search(ctx context.Context, query string, k int, threshold float64) (*models.Match, error) {
	start := time.Now()
	defer func() {
		e.collector.RecordRequest(time.Since(start))
	}()

	text := strings.TrimSpace(query)
	if text == "" {
		return nil, nil
	}

	e.mu.RLock()
	crp, idx, ready := e.corpus, e.index, e.ready
	e.mu.RUnlock()
	if !ready {
		return nil, ErrNotReady
	}

	k, threshold = e.clampParams(k, threshold)
	key := queryKey{text: text, k: k, threshold: threshold}

	if res, ok := e.queryCache.Get(key); ok {
		e.collector.RecordCacheHit(QueryCacheName)
		return res.toMatch(), nil
	}
	e.collector.RecordCacheMiss(QueryCacheName)

	emb, err := e.queryEmbedding(ctx, text)
	if err != nil {
		e.logger.Error("failed to embed query", zap.String("query", utils.Truncate(text, 200)), zap.Error(err))
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	searchK := k
	if size := idx.Size(); searchK > size {
		searchK = size
	}
	hits, err := idx.Search(ctx, emb, searchK)
	if err != nil {
		e.logger.Error("vector search failed", zap.String("query", utils.Truncate(text, 200)), zap.Error(err))
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	best := e.pickBest(crp, hits, threshold)
	if best != nil {
		e.queryCache.Set(key, cachedResult{found: true, similarity: best.Similarity, entryIndex: best.EntryIndex})
		e.logger.Debug("match found",
			zap.String("query", utils.Truncate(text, 200)),
			zap.Float64("similarity", best.Similarity),
			zap.Int("entry", best.EntryIndex))
	} else {
		// No-match is a valid, cacheable outcome.
		e.queryCache.Set(key, cachedResult{})
		e.logger.Debug("no match above threshold",
			zap.String("query", utils.Truncate(text, 200)),
			zap.Float64("threshold", threshold))
	}
	return best, nil
}

// queryEmbedding returns the embedding for text, consulting the embedding
// cache first. The cache key is the trimmed text alone: embeddings do not
// depend on k or threshold.
func (e *Engine) queryEmbedding(ctx context.Context, text string) ([]float32, error) {
	if emb, ok := e.embedCache.Get(text); ok {
		e.collector.RecordCacheHit(EmbeddingCacheName)
		return emb, nil
	}
	e.collector.RecordCacheMiss(EmbeddingCacheName)

	if err := e.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	emb, err := e.embedder.Embed(ctx, text)
	e.gate.Release()
	if err != nil {
		return nil, err
	}
	e.embedCache.Set(text, emb)
	return emb, nil
}

// pickBest maps index hits back to entries, applies the similarity threshold,
// and selects the winner: strictly highest similarity, ties broken by lowest
// entry index. Hits pointing outside the searchable table are logged and skipped.
func (e *Engine) pickBest(crp *corpus.Corpus, hits []*vector.Hit, threshold float64) *models.Match {
	var best *models.Match
	for _, h := range hits {
		entryIndex, ok := crp.EntryFor(h.Row)
		if !ok {
			e.logger.Warn("search hit references row outside corpus", zap.Int("row", h.Row))
			continue
		}
		if h.Score < threshold {
			continue
		}
		if best == nil ||
			h.Score > best.Similarity ||
			(h.Score == best.Similarity && entryIndex < best.EntryIndex) {
			best = &models.Match{Similarity: h.Score, EntryIndex: entryIndex}
		}
	}
	return best
}

// clampParams corrects out-of-range k and threshold to safe values, logging
// each correction. Malformed parameters never fail a request.
func (e *Engine) clampParams(k int, threshold float64) (int, float64) {
	if k <= 0 {
		e.logger.Warn("invalid k, using default", zap.Int("k", k), zap.Int("default", e.cfg.Search.DefaultK))
		k = e.cfg.Search.DefaultK
	}
	if k > e.cfg.Search.MaxK {
		e.logger.Warn("k above maximum, clamping", zap.Int("k", k), zap.Int("max", e.cfg.Search.MaxK))
		k = e.cfg.Search.MaxK
	}
	if threshold < 0 || threshold > 1 || threshold != threshold {
		e.logger.Warn("invalid threshold, using default",
			zap.Float64("threshold", threshold),
			zap.Float64("default", e.cfg.Search.SimilarityThreshold))
		threshold = e.cfg.Search.SimilarityThreshold
	}
	return k, threshold
}

// SearchDetailed is Search enriched with the matched entry's content.
func (e *Engine) SearchDetailed(ctx context.Context, query string, k int, threshold float64) (*models.DetailedMatch, error) {
	m, err := e.Search(ctx, query, k, threshold)
	if err != nil || m == nil {
		return nil, err
	}

	e.mu.RLock()
	crp := e.corpus
	e.mu.RUnlock()

	if m.EntryIndex < 0 || m.EntryIndex >= len(crp.Entries) {
		e.logger.Warn("match references entry outside corpus", zap.Int("entry", m.EntryIndex))
		return nil, nil
	}
	entry := crp.Entries[m.EntryIndex]
	return &models.DetailedMatch{
		Match:     *m,
		Query:     entry.Query,
		Response:  entry.Response,
		Resources: entry.Resources,
	}, nil
}

// SaveIndex persists the current index to path.
func (e *Engine) SaveIndex(path string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.ready {
		return ErrNotReady
	}
	return e.index.Save(path)
}

// LoadIndex loads a persisted index from path and validates it against the
// current corpus: a vector count that does not match the searchable-string
// count leaves the engine not ready, and the caller must Rebuild.
func (e *Engine) LoadIndex(ctx context.Context, path string) error {
	crp, err := corpus.Load(e.cfg.Corpus.Path, e.logger)
	if err != nil {
		return err
	}

	idx, err := vector.NewIndex(e.cfg.Storage.IndexType, e.embedder.Dimensions())
	if err != nil {
		return err
	}
	if err := idx.Load(path); err != nil {
		idx.Close()
		return fmt.Errorf("failed to load index: %w", err)
	}
	if idx.Size() != crp.Size() {
		idx.Close()
		return fmt.Errorf("index has %d vectors but corpus has %d searchable strings: %w",
			idx.Size(), crp.Size(), ErrNotReady)
	}

	e.swap(crp, idx)
	return nil
}

// QueryCacheStats returns query-result cache counters.
func (e *Engine) QueryCacheStats() cache.Stats {
	return e.queryCache.Stats()
}

// EmbeddingCacheStats returns embedding cache counters.
func (e *Engine) EmbeddingCacheStats() cache.Stats {
	return e.embedCache.Stats()
}

// GateStats returns concurrency gate usage.
func (e *Engine) GateStats() gate.Stats {
	return e.gate.Stats()
}

// CorpusSize returns the number of validated entries, or 0 when not ready.
func (e *Engine) CorpusSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.corpus == nil {
		return 0
	}
	return len(e.corpus.Entries)
}

// IndexSize returns the number of indexed vectors, or 0 when not ready.
func (e *Engine) IndexSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return 0
	}
	return e.index.Size()
}

// IndexType returns the active index type, or the configured one when not ready.
func (e *Engine) IndexType() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return e.cfg.Storage.IndexType
	}
	return e.index.Type()
}

// Close releases the index and embedder.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready = false
	if e.index != nil {
		_ = e.index.Close()
		e.index = nil
	}
	return e.embedder.Close()
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/engine"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
)

// askResponse is the lightweight reply for /api/v1/ask; the detailed variant
// uses models.AskResponse with the full entry content.
type askResponse struct {
	Found     bool          `json:"found"`
	Match     *models.Match `json:"match,omitempty"`
	QueryTime int64         `json:"query_time_ms"`
	Query     string        `json:"query"`
}

// decodeAsk parses the request body and applies the zero-means-default rule
// for the threshold. k is corrected inside the engine.
func (s *Server) decodeAsk(r *http.Request) (*models.AskQuery, error) {
	var q models.AskQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		return nil, err
	}
	if q.Threshold == 0 {
		q.Threshold = s.config.Search.SimilarityThreshold
	}
	return &q, nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	q, err := s.decodeAsk(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("query", q.Query), zap.Int("k", q.K))

	start := time.Now()
	match, err := s.engine.Search(r.Context(), q.Query, q.K, q.Threshold)
	if err != nil {
		s.respondSearchError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, askResponse{
		Found:     match != nil,
		Match:     match,
		QueryTime: time.Since(start).Milliseconds(),
		Query:     q.Query,
	})
}

func (s *Server) handleAskDetailed(w http.ResponseWriter, r *http.Request) {
	q, err := s.decodeAsk(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask detailed request", zap.String("query", q.Query), zap.Int("k", q.K))

	start := time.Now()
	match, err := s.engine.SearchDetailed(r.Context(), q.Query, q.K, q.Threshold)
	if err != nil {
		s.respondSearchError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.AskResponse{
		Found:     match != nil,
		Match:     match,
		QueryTime: time.Since(start).Milliseconds(),
		Query:     q.Query,
	})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("rebuild requested")
	if err := s.engine.Rebuild(r.Context()); err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "rebuilt",
		"entries": s.engine.CorpusSize(),
		"vectors": s.engine.IndexSize(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.collector.Snapshot()
	gateStats := s.engine.GateStats()

	resp := map[string]interface{}{
		"ready":            s.engine.IsReady(),
		"entries":          s.engine.CorpusSize(),
		"index_size":       s.engine.IndexSize(),
		"uptime_seconds":   snap.UptimeSeconds,
		"total_requests":   snap.TotalRequests,
		"avg_latency_ms":   snap.AvgLatencyMillis,
		"requests_per_sec": snap.RequestsPerSecond,
		"heap_alloc_bytes": snap.HeapAllocBytes,
		"caches": map[string]interface{}{
			engine.QueryCacheName:     s.engine.QueryCacheStats(),
			engine.EmbeddingCacheName: s.engine.EmbeddingCacheStats(),
		},
		"cache_rates": snap.Caches,
		"gate": map[string]interface{}{
			"active": gateStats.Active,
			"max":    gateStats.Max,
			"total":  gateStats.Total,
		},
	}

	configInfo := map[string]interface{}{
		"index_type":           s.engine.IndexType(),
		"embedding_provider":   s.config.Embedding.Provider,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"corpus_path":          s.config.Corpus.Path,
		"embeddings_path":      s.config.Storage.EmbeddingsPath,
		"index_path":           s.config.Storage.IndexPath,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.EmbeddingsPath,
		s.config.Storage.IndexPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

// respondSearchError maps engine errors to status codes: a not-ready engine is
// a temporary condition, everything else is a server failure.
func (s *Server) respondSearchError(w http.ResponseWriter, err error) {
	s.logger.Error("search failed", zap.Error(err))
	if errors.Is(err, engine.ErrNotReady) {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

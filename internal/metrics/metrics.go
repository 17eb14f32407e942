// Package metrics aggregates request, cache, and memory statistics.
// Collection is observability only: it never affects search behavior and
// never fails the caller.
package metrics

import (
	"runtime"
	"sync"
	"time"
)

// Collector tracks request latencies over a bounded rolling window together
// with per-cache hit/miss counters. All methods are cheap and safe for
// concurrent use on the hot search path.
type Collector struct {
	mu        sync.Mutex
	window    int
	latencies []time.Duration // ring buffer of the most recent window latencies
	next      int
	filled    bool
	total     uint64
	hits      map[string]uint64
	misses    map[string]uint64
	startedAt time.Time
}

// CacheStats is the hit/miss view for one named cache.
type CacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Snapshot is a point-in-time view of collected metrics.
type Snapshot struct {
	UptimeSeconds     float64               `json:"uptime_seconds"`
	TotalRequests     uint64                `json:"total_requests"`
	AvgLatencyMillis  float64               `json:"avg_latency_ms"`
	RequestsPerSecond float64               `json:"requests_per_second"`
	HeapAllocBytes    uint64                `json:"heap_alloc_bytes"`
	Caches            map[string]CacheStats `json:"caches"`
}

// NewCollector creates a collector keeping the last window latencies for the
// moving average.
func NewCollector(window int) *Collector {
	if window <= 0 {
		window = 1000
	}
	return &Collector{
		window:    window,
		latencies: make([]time.Duration, window),
		hits:      make(map[string]uint64),
		misses:    make(map[string]uint64),
		startedAt: time.Now(),
	}
}

// RecordRequest records one completed request latency. Latencies older than
// the window are dropped from the moving average.
func (c *Collector) RecordRequest(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latencies[c.next] = latency
	c.next++
	if c.next == c.window {
		c.next = 0
		c.filled = true
	}
	c.total++
}

// RecordCacheHit increments the hit counter for the named cache.
func (c *Collector) RecordCacheHit(name string) {
	c.mu.Lock()
	c.hits[name]++
	c.mu.Unlock()
}

// RecordCacheMiss increments the miss counter for the named cache.
func (c *Collector) RecordCacheMiss(name string) {
	c.mu.Lock()
	c.misses[name]++
	c.mu.Unlock()
}

// Snapshot returns current aggregates, including a heap memory sample.
func (c *Collector) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.next
	if c.filled {
		n = c.window
	}
	var sum time.Duration
	for i := 0; i < n; i++ {
		sum += c.latencies[i]
	}

	uptime := time.Since(c.startedAt).Seconds()
	s := Snapshot{
		UptimeSeconds:  uptime,
		TotalRequests:  c.total,
		HeapAllocBytes: mem.HeapAlloc,
		Caches:         make(map[string]CacheStats, len(c.hits)+len(c.misses)),
	}
	if n > 0 {
		s.AvgLatencyMillis = float64(sum.Microseconds()) / float64(n) / 1000.0
	}
	if uptime > 0 {
		s.RequestsPerSecond = float64(c.total) / uptime
	}

	for name := range c.hits {
		s.Caches[name] = cacheStats(c.hits[name], c.misses[name])
	}
	for name := range c.misses {
		if _, ok := s.Caches[name]; !ok {
			s.Caches[name] = cacheStats(c.hits[name], c.misses[name])
		}
	}
	return s
}

func cacheStats(hits, misses uint64) CacheStats {
	s := CacheStats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

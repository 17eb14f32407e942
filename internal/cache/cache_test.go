package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string, int](2, 0)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss")
	}
	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
}

func TestCache_EvictsLRU(t *testing.T) {
	c := New[string, int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	// Touch a so b becomes the least recently used.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3) // evicts b
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestCache_OverflowKeepsMaxSize(t *testing.T) {
	c := New[int, int](3, 0)
	for i := 0; i < 4; i++ {
		c.Set(i, i)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get(0); ok {
		t.Error("oldest key should have been evicted")
	}
}

func TestCache_SetOverwriteBumpsRecency(t *testing.T) {
	c := New[string, int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10) // re-insert makes a most recent
	c.Set("c", 3)  // evicts b
	if v, ok := c.Get("a"); !ok || v != 10 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New[string, int](10, time.Minute)
	clock := time.Now()
	c.now = func() time.Time { return clock }

	c.Set("a", 1)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected fresh hit")
	}

	clock = clock.Add(time.Minute) // age exactly to the TTL boundary
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}
	// The expired entry is evicted, not resurrected.
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[string, int](10, 0)
	c.Set("a", 1)
	c.Get("a")
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
	s := c.Stats()
	if s.Hits != 1 {
		t.Errorf("hits = %d, counters should survive Clear", s.Hits)
	}
}

func TestCache_Stats(t *testing.T) {
	c := New[string, int](10, 0)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")
	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Fatalf("stats = %+v", s)
	}
	want := 2.0 / 3.0
	if s.HitRate < want-1e-9 || s.HitRate > want+1e-9 {
		t.Errorf("hit rate = %f, want %f", s.HitRate, want)
	}
}

func TestCache_ConcurrentSet(t *testing.T) {
	const maxSize = 16
	c := New[string, int](maxSize, 0)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*7+i)%40) // overlapping key space
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > maxSize {
		t.Errorf("Len = %d, exceeds max size %d", c.Len(), maxSize)
	}
}

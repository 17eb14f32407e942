// Package gate provides bounded admission control for shared resources.
package gate

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of concurrent holders of a shared resource, such as
// embedder invocation slots. Release must be called exactly once per
// successful Acquire; a double release is a programming error.
type Gate struct {
	sem    *semaphore.Weighted
	max    int64
	active atomic.Int64
	total  atomic.Int64
}

// Stats describes gate usage.
type Stats struct {
	Active int64 `json:"active"`
	Max    int64 `json:"max"`
	Total  int64 `json:"total_acquired"`
}

// New creates a gate admitting at most max concurrent holders.
func New(max int) *Gate {
	if max <= 0 {
		max = 1
	}
	return &Gate{
		sem: semaphore.NewWeighted(int64(max)),
		max: int64(max),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.active.Add(1)
	g.total.Add(1)
	return nil
}

// Release frees a slot obtained by Acquire.
func (g *Gate) Release() {
	g.active.Add(-1)
	g.sem.Release(1)
}

// Stats returns current gate usage.
func (g *Gate) Stats() Stats {
	return Stats{
		Active: g.active.Load(),
		Max:    g.max,
		Total:  g.total.Load(),
	}
}

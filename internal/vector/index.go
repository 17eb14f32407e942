// Package vector provides vector index and similarity search.
package vector

import "context"

// Index defines vector storage and similarity search. Rows are addressed by
// insertion order: the i-th vector passed to Add (counting across calls) is
// row i. Search results refer back to those row positions.
type Index interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Hit, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
	Type() string
}

// Hit is a single vector search result.
type Hit struct {
	Row   int     // insertion-order row position
	Score float64 // inner product; equals cosine similarity for normalized vectors
}

// Package embedding provides text embedding providers for the FAQ matcher.
package embedding

import "context"

// Embedder produces normalized fixed-dimension vector embeddings for text.
// EmbedBatch preserves input order and fails atomically: either every text
// gets an embedding or an error is returned for the whole batch.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

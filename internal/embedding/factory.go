package embedding

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
)

// NewEmbedder creates the embedder selected by cfg.Provider.
// Supported providers: "onnx" (default), "openai", "mock".
func NewEmbedder(cfg *config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "onnx", "":
		return NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case "openai":
		return NewOpenAIEmbedder(cfg.Model)
	case "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, mock)", cfg.Provider)
	}
}

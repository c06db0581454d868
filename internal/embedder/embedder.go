// Package embedder turns text into vectors through eino's Embedder contract.
package embedder

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/Conversly/widget-engine/internal/config"
)

// New builds the embedder selected by configuration. Queries and indexed
// chunks must go through the same provider for their vectors to be comparable.
func New(ctx context.Context, cfg *config.Config, taskType string) (embedding.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "gemini":
		return NewGeminiEmbedder(cfg.GeminiAPIKeys, taskType)
	case "openai", "":
		return NewOpenAIEmbedder(ctx, OpenAIOptions{
			APIKey:  cfg.EmbeddingAPIKey,
			Referer: cfg.OpenRouterReferer,
			Title:   cfg.OpenRouterTitle,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}

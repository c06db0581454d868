package embedder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"github.com/Conversly/widget-engine/internal/utils"
)

const (
	openRouterBaseURL    = "https://openrouter.ai/api/v1"
	openAIEmbeddingModel = "text-embedding-3-small"
	openAITimeout        = 30 * time.Second
)

type OpenAIOptions struct {
	APIKey  string
	Referer string
	Title   string
	// BaseURL overrides the endpoint, for tests.
	BaseURL string
}

// NewOpenAIEmbedder embeds through an OpenAI-compatible /embeddings endpoint.
// A routing key ("sk-or-") goes through OpenRouter with the vendor-prefixed
// model name and attribution headers.
func NewOpenAIEmbedder(ctx context.Context, opts OpenAIOptions) (embedding.Embedder, error) {
	cfg, err := openAIConfig(opts)
	if err != nil {
		return nil, err
	}
	emb, err := openai.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai embedder: %w", err)
	}
	return emb, nil
}

func openAIConfig(opts OpenAIOptions) (*openai.EmbeddingConfig, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}

	cfg := &openai.EmbeddingConfig{
		APIKey:     key,
		Model:      openAIEmbeddingModel,
		HTTPClient: &http.Client{Timeout: openAITimeout},
	}
	if strings.HasPrefix(key, "sk-or-") {
		cfg.BaseURL = openRouterBaseURL
		cfg.Model = "openai/" + openAIEmbeddingModel
		cfg.HTTPClient.Transport = &utils.HeaderTransport{
			Headers: utils.OpenRouterHeaders(opts.Referer, opts.Title),
		}
	}
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	return cfg, nil
}

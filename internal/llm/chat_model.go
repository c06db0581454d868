package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// ModelFactory builds an eino chat model for one request.
type ModelFactory func(ctx context.Context, family core.ProviderFamily, secret string, opts ChatOptions) (model.BaseChatModel, error)

// VendorFactory builds chat models backed by the real vendor SDKs.
// OpenRouter speaks the OpenAI wire format, so it reuses the OpenAI client
// with its own base URL and attribution headers.
func VendorFactory(referer, title string, timeout time.Duration) ModelFactory {
	return func(ctx context.Context, family core.ProviderFamily, secret string, opts ChatOptions) (model.BaseChatModel, error) {
		temperature := opts.Temperature
		maxTokens := opts.MaxTokens

		switch family {
		case core.ProviderGemini:
			client, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  secret,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create Gemini client: %w", err)
			}
			return gemini.NewChatModel(ctx, &gemini.Config{
				Client:      client,
				Model:       opts.Model,
				Temperature: &temperature,
				MaxTokens:   &maxTokens,
			})

		case core.ProviderOpenRouter:
			return openai.NewChatModel(ctx, &openai.ChatModelConfig{
				APIKey:      secret,
				BaseURL:     openRouterBaseURL,
				Model:       opts.Model,
				Temperature: &temperature,
				MaxTokens:   &maxTokens,
				Timeout:     timeout,
				HTTPClient: &http.Client{
					Timeout:   timeout,
					Transport: &utils.HeaderTransport{Headers: utils.OpenRouterHeaders(referer, title)},
				},
			})

		case core.ProviderOpenAI:
			return openai.NewChatModel(ctx, &openai.ChatModelConfig{
				APIKey:      secret,
				Model:       opts.Model,
				Temperature: &temperature,
				MaxTokens:   &maxTokens,
				Timeout:     timeout,
			})
		}
		return nil, fmt.Errorf("unsupported provider family %q", family)
	}
}

// Package llm is the provider gateway: one chat contract over every
// supported model vendor.
package llm

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/Conversly/widget-engine/internal/core"
)

const (
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 500
)

// ChatOptions are the per-request model settings.
type ChatOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Reply is the model's answer and what it cost.
type Reply struct {
	Text   string
	Tokens int
}

// Provider is the uniform chat contract.
type Provider interface {
	Chat(ctx context.Context, messages []*schema.Message, opts ChatOptions) (*Reply, error)
}

var tierModels = map[core.ProviderFamily]map[core.ModelTier]string{
	core.ProviderOpenAI: {
		core.TierLite:  "gpt-3.5-turbo",
		core.TierPro:   "gpt-4-turbo",
		core.TierUltra: "gpt-4o",
	},
	core.ProviderOpenRouter: {
		core.TierLite:  "openai/gpt-3.5-turbo",
		core.TierPro:   "openai/gpt-4-turbo",
		core.TierUltra: "openai/gpt-4o",
	},
	core.ProviderGemini: {
		core.TierLite:  "gemini-2.0-flash-lite",
		core.TierPro:   "gemini-2.0-flash",
		core.TierUltra: "gemini-2.5-pro",
	},
}

// ModelFor maps a tenant's tier to the family's model identifier. Unknown
// tiers get the lite model.
func ModelFor(family core.ProviderFamily, tier core.ModelTier) string {
	models, ok := tierModels[family]
	if !ok {
		models = tierModels[core.ProviderOpenAI]
	}
	if m, ok := models[tier]; ok {
		return m
	}
	return models[core.TierLite]
}

// OptionsFor builds the standard request settings for a tier.
func OptionsFor(family core.ProviderFamily, tier core.ModelTier) ChatOptions {
	return ChatOptions{
		Model:       ModelFor(family, tier),
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

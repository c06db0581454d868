package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

const (
	DefaultTimeout = 30 * time.Second

	// ProviderErrorMessage is what the visitor sees when the model call fails.
	ProviderErrorMessage = "Sorry, I'm having trouble responding right now. Please try again in a moment."
)

// Gateway resolves a provider per request and enforces the call timeout.
// It never retries.
type Gateway struct {
	factory ModelFactory
	timeout time.Duration
}

func NewGateway(factory ModelFactory, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{factory: factory, timeout: timeout}
}

// For binds the gateway to one tenant's provider family and secret.
func (g *Gateway) For(family core.ProviderFamily, secret string) Provider {
	return &boundProvider{gateway: g, family: family, secret: secret}
}

type boundProvider struct {
	gateway *Gateway
	family  core.ProviderFamily
	secret  string
}

func (p *boundProvider) Chat(ctx context.Context, messages []*schema.Message, opts ChatOptions) (*Reply, error) {
	return p.gateway.chat(ctx, p.family, p.secret, messages, opts)
}

func (g *Gateway) chat(ctx context.Context, family core.ProviderFamily, secret string, messages []*schema.Message, opts ChatOptions) (*Reply, error) {
	const op = "llm.Chat"
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	chatModel, err := g.factory(ctx, family, secret, opts)
	if err != nil {
		return nil, utils.E(utils.CodeProvider, op, ProviderErrorMessage, err)
	}

	msg, err := chatModel.Generate(ctx, messages)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = errors.Join(err, context.DeadlineExceeded)
		}
		utils.Zlog.Error("Provider call failed",
			zap.String("family", string(family)),
			zap.String("model", opts.Model),
			zap.String("key", utils.MaskKey(secret)),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err))
		return nil, utils.E(utils.CodeProvider, op, ProviderErrorMessage, err)
	}
	if msg == nil {
		return nil, utils.E(utils.CodeProvider, op, ProviderErrorMessage, errors.New("empty completion"))
	}

	reply := &Reply{Text: msg.Content, Tokens: tokensUsed(messages, msg)}

	utils.Zlog.Info("Provider call completed",
		zap.String("family", string(family)),
		zap.String("model", opts.Model),
		zap.Int("tokens", reply.Tokens),
		zap.Duration("latency", time.Since(start)))

	return reply, nil
}

// tokensUsed prefers the provider's total, then its completion count, and
// finally estimates prompt plus reply.
func tokensUsed(input []*schema.Message, out *schema.Message) int {
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		u := out.ResponseMeta.Usage
		if u.TotalTokens > 0 {
			return u.TotalTokens
		}
		if u.CompletionTokens > 0 {
			return u.CompletionTokens
		}
	}
	n := utils.EstimateTokens(out.Content)
	for _, m := range input {
		n += utils.EstimateTokens(m.Content)
	}
	return n
}

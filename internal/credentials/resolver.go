// Package credentials maps widget tokens to tenants and their AI provider.
package credentials

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/loaders"
	"github.com/Conversly/widget-engine/internal/utils"
)

const (
	openRouterPrefix = "sk-or-"
	openAIPrefix     = "sk-"
	minKeyLength     = 32

	NoProviderMessage = "No AI provider key configured. Please add a valid OpenAI/OpenRouter key in the dashboard settings."
)

// Source looks up a credential by its public token.
type Source interface {
	GetCredentialByToken(ctx context.Context, token string) (*core.Credential, error)
}

// Resolved is an authenticated credential plus the provider to call.
type Resolved struct {
	Credential *core.Credential
	Secret     string
	Family     core.ProviderFamily
}

type Resolver struct {
	source     Source
	defaultKey string
	now        func() time.Time
}

func NewResolver(source Source, defaultKey string) *Resolver {
	return &Resolver{source: source, defaultKey: strings.TrimSpace(defaultKey), now: time.Now}
}

// Authenticate returns the active, unexpired credential for token.
func (r *Resolver) Authenticate(ctx context.Context, token string) (*core.Credential, error) {
	const op = "credentials.Authenticate"

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, utils.E(utils.CodeInvalidCredential, op, "Invalid Key", nil)
	}

	cred, err := r.source.GetCredentialByToken(ctx, token)
	if errors.Is(err, loaders.ErrNotFound) {
		return nil, utils.E(utils.CodeInvalidCredential, op, "Invalid Key", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "Service temporarily unavailable", err)
	}
	if !cred.Active || cred.Expired(r.now()) {
		return nil, utils.E(utils.CodeInvalidCredential, op, "Invalid Key", nil)
	}
	return cred, nil
}

// Resolve authenticates token and picks the provider secret and family.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Resolved, error) {
	cred, err := r.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return r.ResolveProvider(cred)
}

// ResolveProvider chooses the tenant's own secret when it is usable and the
// platform default otherwise.
func (r *Resolver) ResolveProvider(cred *core.Credential) (*Resolved, error) {
	explicit := core.ProviderFamily(strings.ToLower(strings.TrimSpace(cred.Provider)))
	secret := strings.TrimSpace(cred.ProviderSecret)

	if !usableKey(explicit, secret) {
		secret = r.defaultKey
		// The platform default is an OpenAI-wire key.
		if explicit == core.ProviderGemini {
			explicit = ""
		}
	}
	if !usableKey(explicit, secret) {
		utils.Zlog.Error("No usable provider key for credential",
			zap.String("tenant_id", cred.TenantID),
			zap.String("credential_id", cred.ID))
		return nil, utils.E(utils.CodeNoProviderConfigured, "credentials.ResolveProvider", NoProviderMessage, nil)
	}

	return &Resolved{Credential: cred, Secret: secret, Family: Family(explicit, secret)}, nil
}

// Family applies the routing rule: an explicit provider wins, except that an
// OpenRouter key configured as openai goes to OpenRouter. Without an explicit
// provider the key prefix decides.
func Family(explicit core.ProviderFamily, secret string) core.ProviderFamily {
	routed := strings.HasPrefix(secret, openRouterPrefix)
	switch explicit {
	case core.ProviderOpenAI:
		if routed {
			return core.ProviderOpenRouter
		}
		return core.ProviderOpenAI
	case core.ProviderOpenRouter, core.ProviderGemini:
		return explicit
	}
	if routed {
		return core.ProviderOpenRouter
	}
	return core.ProviderOpenAI
}

// usableKey reports whether secret is shaped like a key for the family.
func usableKey(family core.ProviderFamily, secret string) bool {
	if len(secret) < minKeyLength {
		return false
	}
	if family == core.ProviderGemini {
		return !strings.ContainsAny(secret, " \t\n")
	}
	return strings.HasPrefix(secret, openAIPrefix)
}

package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/response"
)

const (
	HeaderAPIKey    = "X-API-Key"
	HeaderSessionID = "X-Session-ID"

	credentialKey = "credential"
)

// Authenticator validates a widget token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*core.Credential, error)
}

// RequireCredential rejects requests without a valid X-API-Key and stores
// the credential for later handlers.
func RequireCredential(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := auth.Authenticate(c.Request.Context(), c.GetHeader(HeaderAPIKey))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Set(credentialKey, cred)
		c.Next()
	}
}

// CredentialFrom returns the credential RequireCredential stored, or nil.
func CredentialFrom(c *gin.Context) *core.Credential {
	if v, ok := c.Get(credentialKey); ok {
		if cred, ok := v.(*core.Credential); ok {
			return cred
		}
	}
	return nil
}

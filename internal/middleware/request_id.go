package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Conversly/widget-engine/internal/response"
)

const HeaderRequestID = "X-Request-ID"

// RequestID keeps a caller-supplied X-Request-ID or mints a time-ordered one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			if id, err := uuid.NewV7(); err == nil {
				requestID = id.String()
			} else {
				requestID = uuid.NewString()
			}
		}
		c.Header(HeaderRequestID, requestID)
		c.Set(response.RequestIDKey, requestID)
		c.Next()
	}
}

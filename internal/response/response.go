// Package response writes the JSON envelopes shared by every HTTP handler.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/utils"
)

// RequestIDKey is the gin context key the request id middleware sets.
const RequestIDKey = "request_id"

// RequestID returns the id attached to the request, or "".
func RequestID(c *gin.Context) string {
	if idVal, exists := c.Get(RequestIDKey); exists {
		if rid, ok := idVal.(string); ok {
			return rid
		}
	}
	return ""
}

// OK writes {success: true, request_id, data}.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": RequestID(c),
		"data":       data,
	})
}

// Error maps err onto its HTTP status and writes the error envelope. Only
// the visitor-safe message leaves the process.
func Error(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	code := utils.CodeOf(err)

	fields := []zap.Field{
		zap.String("code", string(code)),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", RequestID(c)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		utils.Zlog.Error("Request failed", fields...)
	} else {
		utils.Zlog.Warn("Request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, gin.H{
		"success":    false,
		"error":      code,
		"message":    utils.PublicMessage(err),
		"request_id": RequestID(c),
		"timestamp":  time.Now().UTC(),
	})
}

// BadRequest reports a payload that failed to bind.
func BadRequest(c *gin.Context, err error) {
	Error(c, utils.E(utils.CodeInvalidArgument, "bind", err.Error(), err))
}

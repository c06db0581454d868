package widget

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the widget endpoints on a group that already
// requires a credential. limit guards the endpoints that reach the model
// or create sessions.
func RegisterRoutes(group *gin.RouterGroup, svc *Service, limit gin.HandlerFunc) {
	ctrl := NewController(svc)

	group.POST("/init", limit, ctrl.Init)
	group.POST("/chat", limit, ctrl.Chat)
	group.GET("/history/:sessionId", ctrl.History)
}

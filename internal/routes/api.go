package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conversly/widget-engine/internal/api/conversion"
	"github.com/Conversly/widget-engine/internal/api/widget"
	"github.com/Conversly/widget-engine/internal/controllers"
	"github.com/Conversly/widget-engine/internal/middleware"
)

// SetupAPIRoutes mounts the versioned widget API. Every widget route needs
// a credential; /init and /chat are also request-limited.
func SetupAPIRoutes(router *gin.Engine, deps Dependencies) {
	v1 := router.Group("/api/v1")
	v1.GET("/status", controllers.NewSystemController(deps.Config).Status)

	widgetGroup := v1.Group("/widget", middleware.RequireCredential(deps.Auth))
	widget.RegisterRoutes(widgetGroup, deps.Widget, middleware.RateLimit(deps.Limiter))
	conversion.RegisterRoutes(widgetGroup, deps.Sessions)
}

// Setup404Handler configures the 404 handler
func Setup404Handler(router *gin.Engine) {
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "The requested resource was not found",
			"path":    c.Request.URL.Path,
		})
	})
}

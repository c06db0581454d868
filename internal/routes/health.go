package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conversly/widget-engine/internal/controllers"
)

// SetupHealthRoutes configures health check endpoints
func SetupHealthRoutes(router *gin.Engine, db, redis controllers.Pinger) {
	healthController := controllers.NewHealthController(db, redis)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	router.GET("/health", healthController.HealthCheck)
	router.GET("/health/live", healthController.Liveness)
	router.GET("/health/ready", healthController.Readiness)
}

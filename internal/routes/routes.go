package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Conversly/widget-engine/internal/api/widget"
	"github.com/Conversly/widget-engine/internal/config"
	"github.com/Conversly/widget-engine/internal/controllers"
	"github.com/Conversly/widget-engine/internal/middleware"
	"github.com/Conversly/widget-engine/internal/session"
)

// Dependencies are the wired components the HTTP layer needs.
type Dependencies struct {
	Config   *config.Config
	DB       controllers.Pinger
	Redis    controllers.Pinger // nil when the request limiter is off
	Auth     middleware.Authenticator
	Limiter  *middleware.Limiter
	Widget   *widget.Service
	Sessions *session.Manager
}

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(deps.Config.AllowedOrigins))

	SetupHealthRoutes(router, deps.DB, deps.Redis)
	SetupAPIRoutes(router, deps)
	Setup404Handler(router)
}

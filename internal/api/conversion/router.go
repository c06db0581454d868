package conversion

import (
	"github.com/gin-gonic/gin"

	"github.com/Conversly/widget-engine/internal/session"
)

// RegisterRoutes mounts /conversion and /lead on an authenticated group.
func RegisterRoutes(group *gin.RouterGroup, sessions *session.Manager) {
	ctrl := NewController(NewService(sessions))
	group.POST("/conversion", ctrl.Track)
	group.POST("/lead", ctrl.SubmitLead)
}

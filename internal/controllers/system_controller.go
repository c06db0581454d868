package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conversly/widget-engine/internal/config"
)

type SystemController struct {
	cfg *config.Config
}

func NewSystemController(cfg *config.Config) *SystemController {
	return &SystemController{cfg: cfg}
}

// Status godoc
// @Summary Get service status
// @Description Non-secret runtime settings of this instance
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/status [get]
func (s *SystemController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":            s.cfg.ServiceName,
		"environment":        s.cfg.Environment,
		"hostname":           s.cfg.Hostname,
		"embedding_provider": s.cfg.EmbeddingProvider,
		"request_limiter":    s.cfg.RedisURL != "",
		"provider_timeout":   s.cfg.ProviderTimeout.String(),
		"timestamp":          time.Now().UTC(),
	})
}

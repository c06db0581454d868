package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/utils"
)

const probeTimeout = 5 * time.Second

// Pinger is anything whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthController struct {
	db    Pinger
	redis Pinger
}

// NewHealthController checks the database and, when redis is non-nil, the
// request limiter's counter store.
func NewHealthController(db Pinger, redis Pinger) *HealthController {
	return &HealthController{db: db, redis: redis}
}

// probe pings every dependency and reports each one as up, down or disabled.
func (h *HealthController) probe(ctx context.Context) (gin.H, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	deps := gin.H{"database": "up", "redis": "disabled"}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		utils.Zlog.Error("Database health check failed", zap.Error(err))
		deps["database"] = "down"
		healthy = false
	}
	if h.redis != nil {
		deps["redis"] = "up"
		if err := h.redis.Ping(ctx); err != nil {
			utils.Zlog.Warn("Redis health check failed", zap.Error(err))
			deps["redis"] = "down"
		}
	}
	return deps, healthy
}

// HealthCheck godoc
// @Summary Check application health
// @Description Check the database and the optional rate-limit store
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthController) HealthCheck(c *gin.Context) {
	deps, healthy := h.probe(c.Request.Context())
	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	deps["status"] = status
	deps["timestamp"] = time.Now().UTC()
	c.JSON(code, deps)
}

// Liveness godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/live [get]
func (h *HealthController) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// Readiness godoc
// @Summary Readiness probe
// @Description Ready once the database answers
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (h *HealthController) Readiness(c *gin.Context) {
	deps, healthy := h.probe(c.Request.Context())
	status, code := "ready", http.StatusOK
	if !healthy {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	deps["status"] = status
	deps["timestamp"] = time.Now().UTC()
	c.JSON(code, deps)
}

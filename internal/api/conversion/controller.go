package conversion

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/middleware"
	"github.com/Conversly/widget-engine/internal/response"
	"github.com/Conversly/widget-engine/internal/utils"
)

type Controller struct {
	svc *Service
}

func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

func (c *Controller) Track(ctx *gin.Context) {
	var req ConversionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Zlog.Warn("invalid /conversion payload", zap.Error(err))
		response.BadRequest(ctx, err)
		return
	}

	if err := c.svc.Track(ctx.Request.Context(), middleware.CredentialFrom(ctx), &req); err != nil {
		response.Error(ctx, err)
		return
	}
	response.OK(ctx, Ack{Message: "Conversion tracked"})
}

func (c *Controller) SubmitLead(ctx *gin.Context) {
	var req LeadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Zlog.Warn("invalid /lead payload", zap.Error(err))
		response.BadRequest(ctx, err)
		return
	}

	if err := c.svc.SubmitLead(ctx.Request.Context(), middleware.CredentialFrom(ctx), &req); err != nil {
		response.Error(ctx, err)
		return
	}
	response.OK(ctx, Ack{Message: "Lead submitted successfully"})
}

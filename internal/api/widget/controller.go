package widget

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/middleware"
	"github.com/Conversly/widget-engine/internal/response"
	"github.com/Conversly/widget-engine/internal/utils"
)

// Controller handles widget HTTP requests.
type Controller struct {
	svc *Service
}

func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

// Init handles POST /init.
func (c *Controller) Init(ctx *gin.Context) {
	var req InitRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Zlog.Warn("invalid /init payload", zap.Error(err))
			response.BadRequest(ctx, err)
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID = ctx.GetHeader(middleware.HeaderSessionID)
	}
	if req.PageURL == "" {
		req.PageURL = ctx.GetHeader("Referer")
	}

	data, err := c.svc.Init(ctx.Request.Context(), middleware.CredentialFrom(ctx), req)
	if err != nil {
		response.Error(ctx, err)
		return
	}
	response.OK(ctx, data)
}

// Chat handles POST /chat.
func (c *Controller) Chat(ctx *gin.Context) {
	var req ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Zlog.Warn("invalid /chat payload", zap.Error(err))
		response.BadRequest(ctx, err)
		return
	}
	if req.SessionID == "" {
		req.SessionID = ctx.GetHeader(middleware.HeaderSessionID)
	}
	req.UserAgent = ctx.GetHeader("User-Agent")

	reply, err := c.svc.Chat(ctx.Request.Context(), middleware.CredentialFrom(ctx), req)
	if err != nil {
		response.Error(ctx, err)
		return
	}
	response.OK(ctx, reply)
}

// History handles GET /history/:sessionId.
func (c *Controller) History(ctx *gin.Context) {
	data, err := c.svc.History(ctx.Request.Context(), middleware.CredentialFrom(ctx), ctx.Param("sessionId"))
	if err != nil {
		response.Error(ctx, err)
		return
	}
	response.OK(ctx, data)
}

package api_router

import (
	"github.com/gin-gonic/gin"

	"github.com/anchored-notes/anchored-sync-service/internal/app"
	pkgapp "github.com/anchored-notes/anchored-sync-service/pkg/app"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// StatusHandler 运行状态 API 路由处理器
type StatusHandler struct {
	*Handler
}

// NewStatusHandler 创建 StatusHandler 实例
func NewStatusHandler(a *app.App) *StatusHandler {
	return &StatusHandler{Handler: NewHandler(a)}
}

// Status 获取运行状态
func (h *StatusHandler) Status(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	info, err := h.App.StatusService.Status(c.Request.Context())
	if err != nil {
		h.respondError(c, "StatusHandler.Status", err)
		return
	}

	response.ToResponse(code.Success.WithData(info))
}

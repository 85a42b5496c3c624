package api_router

import (
	"github.com/gin-gonic/gin"

	"github.com/anchored-notes/anchored-sync-service/internal/app"
	pkgapp "github.com/anchored-notes/anchored-sync-service/pkg/app"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// BackupHandler 备份 API 路由处理器
type BackupHandler struct {
	*Handler
}

// NewBackupHandler 创建 BackupHandler 实例
func NewBackupHandler(a *app.App) *BackupHandler {
	return &BackupHandler{Handler: NewHandler(a)}
}

// Run 手动触发一次备份
func (h *BackupHandler) Run(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	result, err := h.App.BackupService.Execute(c.Request.Context())
	if err != nil {
		h.respondError(c, "BackupHandler.Run", err)
		return
	}

	response.ToResponse(code.Success.WithData(result))
}

package api_router

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/internal/app"
	pkgapp "github.com/anchored-notes/anchored-sync-service/pkg/app"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// MigrationHandler 迁移 API 路由处理器
type MigrationHandler struct {
	*Handler
}

// NewMigrationHandler 创建 MigrationHandler 实例
func NewMigrationHandler(a *app.App) *MigrationHandler {
	return &MigrationHandler{Handler: NewHandler(a)}
}

// Check 检查本地数据是否需要迁移
func (h *MigrationHandler) Check(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	report, err := h.App.MigrationService.CheckLocalData(c.Request.Context())
	if err != nil {
		h.respondError(c, "MigrationHandler.Check", err)
		return
	}

	response.ToResponse(code.Success.WithData(report))
}

// Validate 校验候选迁移载荷，不提交
// 请求体为原始导出信封
func (h *MigrationHandler) Validate(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBodySize))
	if err != nil {
		h.App.Logger().Error("MigrationHandler.Validate read body err", zap.Error(err))
		response.ToResponse(code.ErrorImportInvalidPayload.WithDetails(err.Error()))
		return
	}

	result := h.App.MigrationService.ValidatePayload(c.Request.Context(), payload)
	response.ToResponse(code.Success.WithData(result))
}

// Run 执行迁移导入并发出迁移事件
func (h *MigrationHandler) Run(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBodySize))
	if err != nil {
		h.App.Logger().Error("MigrationHandler.Run read body err", zap.Error(err))
		response.ToResponse(code.ErrorImportInvalidPayload.WithDetails(err.Error()))
		return
	}

	report, err := h.App.MigrationService.RunMigration(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, "MigrationHandler.Run", err)
		return
	}

	response.ToResponse(code.Success.WithData(report))
}

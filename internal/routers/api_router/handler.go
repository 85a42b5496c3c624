// Package api_router 提供 HTTP API 路由处理器
package api_router

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/internal/app"
	"github.com/anchored-notes/anchored-sync-service/internal/middleware"
	pkgapp "github.com/anchored-notes/anchored-sync-service/pkg/app"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// Handler 基础 Handler 结构体，封装 App Container
// 所有 API Handler 都应该嵌入此结构体以获得依赖注入能力
type Handler struct {
	App *app.App
}

// NewHandler 创建基础 Handler 实例
func NewHandler(a *app.App) *Handler {
	return &Handler{App: a}
}

// respondError logs the failure and writes the unified error body.
// Service and repository errors surface as *code.Code; anything else
// maps to an internal error.
func (h *Handler) respondError(c *gin.Context, op string, err error) {
	response := pkgapp.NewResponse(c)

	h.App.Logger().Error(op+" err",
		zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
		zap.Error(err))

	var codeErr *code.Code
	if errors.As(err, &codeErr) {
		response.ToResponse(codeErr)
		return
	}

	response.ToResponse(code.ErrorServerInternal.WithDetails(err.Error()))
}

package api_router

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/internal/app"
	"github.com/anchored-notes/anchored-sync-service/internal/dto"
	pkgapp "github.com/anchored-notes/anchored-sync-service/pkg/app"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// maxImportBodySize caps import payloads at 64MB, matching the
// WebSocket read limit.
const maxImportBodySize = 1024 * 1024 * 64

// TransferHandler 导入导出 API 路由处理器
type TransferHandler struct {
	*Handler
}

// NewTransferHandler 创建 TransferHandler 实例
func NewTransferHandler(a *app.App) *TransferHandler {
	return &TransferHandler{Handler: NewHandler(a)}
}

// Export 导出笔记为信封格式
// 可通过 domains 参数收窄导出范围，download=1 时作为附件下载
func (h *TransferHandler) Export(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ExportRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("TransferHandler.Export.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.Errors()...))
		return
	}

	env, err := h.App.NoteService.Export(c.Request.Context(), params.Domains...)
	if err != nil {
		h.respondError(c, "TransferHandler.Export", err)
		return
	}

	if c.Query("download") == "1" {
		payload, err := sonic.Marshal(env)
		if err != nil {
			h.respondError(c, "TransferHandler.Export", err)
			return
		}
		fileName := fmt.Sprintf("anchored-notes-%s.json", time.Now().Format("20060102-150405"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
		return
	}

	response.ToResponse(code.Success.WithData(env))
}

// Import 导入信封格式的笔记
// 请求体为原始导出信封，按域名逐桶合并
func (h *TransferHandler) Import(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBodySize))
	if err != nil {
		h.App.Logger().Error("TransferHandler.Import read body err", zap.Error(err))
		response.ToResponse(code.ErrorImportInvalidPayload.WithDetails(err.Error()))
		return
	}

	result, err := h.App.ImportService.Import(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, "TransferHandler.Import", err)
		return
	}

	response.ToResponse(code.Success.WithData(result))
}

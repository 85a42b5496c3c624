package api_router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/internal/app"
	"github.com/anchored-notes/anchored-sync-service/internal/dto"
	pkgapp "github.com/anchored-notes/anchored-sync-service/pkg/app"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// NoteHandler 笔记 API 路由处理器
// 使用 App Container 注入依赖，支持统一错误处理
type NoteHandler struct {
	*Handler
}

// NewNoteHandler 创建 NoteHandler 实例
func NewNoteHandler(a *app.App) *NoteHandler {
	return &NoteHandler{Handler: NewHandler(a)}
}

// Get 获取单条笔记详情
func (h *NoteHandler) Get(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteGetRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("NoteHandler.Get.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.Errors()...))
		return
	}

	note, err := h.App.NoteService.Get(c.Request.Context(), params.ID)
	if err != nil {
		h.respondError(c, "NoteHandler.Get", err)
		return
	}

	response.ToResponse(code.Success.WithData(note))
}

// List 获取笔记列表
// 支持按 domain 或 url 过滤，无过滤时返回全部（按更新时间倒序）
func (h *NoteHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteListRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("NoteHandler.List.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.Errors()...))
		return
	}

	notes, err := h.App.NoteService.List(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, "NoteHandler.List", err)
		return
	}

	cfg := h.App.Config()
	pageSize := pkgapp.GetPageSizeWithConfig(c, pkgapp.PaginationConfig{
		DefaultPageSize: cfg.App.DefaultPageSize,
		MaxPageSize:     cfg.App.MaxPageSize,
	})
	offset := pkgapp.GetPageOffset(pkgapp.GetPage(c), pageSize)
	if offset > len(notes) {
		offset = len(notes)
	}
	end := offset + pageSize
	if end > len(notes) {
		end = len(notes)
	}

	response.ToResponseList(code.Success, notes[offset:end], len(notes))
}

// CreateOrUpdate 创建或更新笔记
// 空 id 创建新笔记，已知 id 更新
func (h *NoteHandler) CreateOrUpdate(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteSaveRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("NoteHandler.CreateOrUpdate.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.Errors()...))
		return
	}

	note, err := h.App.NoteService.Save(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, "NoteHandler.CreateOrUpdate", err)
		return
	}

	response.ToResponse(code.Success.WithData(note))
}

// Delete 删除单条笔记
func (h *NoteHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteDeleteRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("NoteHandler.Delete.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.Errors()...))
		return
	}

	note, err := h.App.NoteService.Delete(c.Request.Context(), params.ID)
	if err != nil {
		h.respondError(c, "NoteHandler.Delete", err)
		return
	}

	response.ToResponse(code.Success.WithData(note))
}

// DeleteDomain 删除整个域名下的所有笔记
func (h *NoteHandler) DeleteDomain(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	d := c.Param("domain")
	if d == "" {
		response.ToResponse(code.ErrorInvalidDomain)
		return
	}

	count, err := h.App.NoteService.DeleteDomain(c.Request.Context(), d)
	if err != nil {
		h.respondError(c, "NoteHandler.DeleteDomain", err)
		return
	}

	response.ToResponse(code.Success.WithData(gin.H{"domain": d, "count": count}))
}

// Domains 获取已知域名列表
func (h *NoteHandler) Domains(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	domains, err := h.App.NoteService.Domains(c.Request.Context())
	if err != nil {
		h.respondError(c, "NoteHandler.Domains", err)
		return
	}

	response.ToResponse(code.Success.WithData(domains))
}

package api_router

import (
	"github.com/gin-gonic/gin"

	"github.com/anchored-notes/anchored-sync-service/internal/app"
	"github.com/anchored-notes/anchored-sync-service/internal/dto"
	pkgapp "github.com/anchored-notes/anchored-sync-service/pkg/app"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// VersionHandler 版本信息 API 路由处理器
// 使用 App Container 注入依赖
type VersionHandler struct {
	*Handler
}

// NewVersionHandler 创建 VersionHandler 实例
func NewVersionHandler(a *app.App) *VersionHandler {
	return &VersionHandler{
		Handler: NewHandler(a),
	}
}

// ServerVersion 获取服务端版本信息
func (h *VersionHandler) ServerVersion(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	versionInfo := h.App.Version()
	checkInfo := h.App.CheckVersion()
	response.ToResponse(code.Success.WithData(dto.VersionDTO{
		Version:        versionInfo.Version,
		GitTag:         versionInfo.GitTag,
		BuildTime:      versionInfo.BuildTime,
		VersionIsNew:   checkInfo.VersionIsNew,
		VersionNewName: checkInfo.VersionNewName,
		VersionNewLink: checkInfo.VersionNewLink,
	}))
}

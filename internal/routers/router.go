package routers

import (
	"time"

	"github.com/anchored-notes/anchored-sync-service/internal/app"
	"github.com/anchored-notes/anchored-sync-service/internal/middleware"
	"github.com/anchored-notes/anchored-sync-service/internal/routers/api_router"
	"github.com/anchored-notes/anchored-sync-service/internal/routers/websocket_router"
	"github.com/anchored-notes/anchored-sync-service/pkg/limiter"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
)

var methodLimiters = limiter.NewMethodLimiter().AddBuckets(
	limiter.BucketRule{
		Key:          "/api/import",
		FillInterval: time.Second,
		Capacity:     10,
		Quantum:      10,
	},
	limiter.BucketRule{
		Key:          "/api/migration/run",
		FillInterval: time.Second,
		Capacity:     5,
		Quantum:      5,
	},
)

// NewRouter 构建 HTTP 路由
// 返回 gin 引擎和 WebSocket 事件服务（调用方负责关闭）
func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator) (*gin.Engine, *websocket_router.EventServer) {

	// 获取配置
	cfg := appContainer.Config()

	// 创建 WebSocket 事件推送服务（订阅事件总线）
	eventServer := websocket_router.NewEventServer(appContainer)

	r := gin.New()

	api := r.Group("/api")
	{
		api.Use(middleware.AppInfoWithConfig(app.Name, appContainer.Version().Version))
		api.Use(gin.Logger())
		api.Use(middleware.TraceMiddlewareWithConfig(cfg.Tracer.Enabled, cfg.Tracer.Header)) // Trace ID 中间件
		api.Use(middleware.RateLimiter(methodLimiters))
		api.Use(middleware.ContextTimeout(cfg.GetContextTimeout()))
		api.Use(middleware.Cors())
		api.Use(middleware.LangWithTranslator(uni))
		api.Use(middleware.AccessLogWithLogger(appContainer.Logger()))
		api.Use(middleware.RecoveryWithLogger(appContainer.Logger()))

		// 创建 Handlers（注入 App Container）
		noteHandler := api_router.NewNoteHandler(appContainer)
		transferHandler := api_router.NewTransferHandler(appContainer)
		migrationHandler := api_router.NewMigrationHandler(appContainer)
		statusHandler := api_router.NewStatusHandler(appContainer)
		backupHandler := api_router.NewBackupHandler(appContainer)
		versionHandler := api_router.NewVersionHandler(appContainer)

		// 服务端版本号接口（无需认证）
		api.GET("/version", versionHandler.ServerVersion)

		auth := middleware.AuthTokenWithConfig(cfg.Security.AuthToken)

		api.Use(auth).GET("/events", eventServer.Run())

		api.Use(auth).GET("/note", noteHandler.Get)
		api.Use(auth).POST("/note", noteHandler.CreateOrUpdate)
		api.Use(auth).DELETE("/note", noteHandler.Delete)
		api.Use(auth).GET("/notes", noteHandler.List)
		api.Use(auth).DELETE("/notes/domain/:domain", noteHandler.DeleteDomain)
		api.Use(auth).GET("/domains", noteHandler.Domains)

		api.Use(auth).GET("/export", transferHandler.Export)
		api.Use(auth).POST("/import", transferHandler.Import)

		api.Use(auth).GET("/migration/check", migrationHandler.Check)
		api.Use(auth).POST("/migration/validate", migrationHandler.Validate)
		api.Use(auth).POST("/migration/run", migrationHandler.Run)

		api.Use(auth).GET("/status", statusHandler.Status)
		api.Use(auth).POST("/backup", backupHandler.Run)
	}

	r.Use(middleware.Cors())
	r.NoRoute(middleware.NoFound())

	return r, eventServer
}

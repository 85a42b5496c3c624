// Package app provides the application container wiring all dependencies and services.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anchored-notes/anchored-sync-service/internal/bus"
	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/internal/kvstore"
	"github.com/anchored-notes/anchored-sync-service/internal/repository"
	"github.com/anchored-notes/anchored-sync-service/internal/service"
	pkgapp "github.com/anchored-notes/anchored-sync-service/pkg/app"
	"github.com/anchored-notes/anchored-sync-service/pkg/workerpool"
	"github.com/anchored-notes/anchored-sync-service/pkg/writequeue"
	"golang.org/x/mod/semver"

	"go.uber.org/zap"
)

// App 应用容器，封装所有依赖和服务
type App struct {
	// 基础设施（注入的依赖）
	config *AppConfig
	logger *zap.Logger
	store  domain.Store

	// 并发控制组件
	workerPool    *workerpool.Pool
	writeQueueMgr *writequeue.Manager

	// 事件总线
	EventBus *bus.Bus

	// Repository 层
	NoteRepo domain.NoteRepository

	// Service 层
	NoteService      service.NoteService
	ImportService    service.ImportService
	MigrationService service.MigrationService
	BackupService    service.BackupService
	StatusService    service.StatusService

	// 版本检查信息
	checkVersionMu sync.RWMutex
	checkVersion   pkgapp.CheckVersionInfo
}

// NewApp 创建应用容器实例
// 初始化所有依赖并进行依赖注入
func NewApp(cfg *AppConfig, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	a := &App{
		config: cfg,
		logger: logger,
	}

	store, err := kvstore.NewStore(&cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("init store failed: %w", err)
	}
	a.store = store

	// 初始化 Worker Pool
	wpConfig := cfg.GetWorkerPoolConfig()
	a.workerPool = workerpool.New(&wpConfig, logger)

	// 初始化 Write Queue Manager
	wqConfig := cfg.GetWriteQueueConfig()
	a.writeQueueMgr = writequeue.New(&wqConfig, logger)

	// 初始化事件总线
	a.EventBus = bus.New(logger)

	// 初始化 Repository 层
	repo := repository.NewNoteRepository(store, a.EventBus, a.writeQueueMgr, Version, logger)
	if err := repo.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("load note cache failed: %w", err)
	}
	a.NoteRepo = repo

	// 创建 ServiceConfig（从 AppConfig 提取 Service 层需要的配置）
	svcConfig := &service.ServiceConfig{
		AppVersion:          Version,
		SoftDeleteRetention: cfg.GetSoftDeleteRetention(),
		ExportSource:        cfg.App.ExportSource,
	}

	// 初始化 Service 层（依赖注入）
	a.NoteService = service.NewNoteService(a.NoteRepo, svcConfig)
	a.ImportService = service.NewImportService(a.NoteRepo, a.EventBus, logger)
	a.MigrationService = service.NewMigrationService(a.NoteRepo, a.ImportService, a.EventBus, Version, cfg.App.AcceptEncryptedNotes, logger)
	a.BackupService = service.NewBackupService(a.NoteService, a.workerPool, cfg.Backup.Targets, logger)
	a.StatusService = service.NewStatusService(a.NoteRepo, string(cfg.Store.Type), Version)

	logger.Info("App container initialized successfully",
		zap.String("storeType", string(cfg.Store.Type)),
		zap.Int("workerPoolMaxWorkers", wpConfig.MaxWorkers),
		zap.Int("writeQueueCapacity", wqConfig.QueueCapacity))

	return a, nil
}

// Close 释放应用容器持有的资源
func (a *App) Close(ctx context.Context) error {
	if err := a.writeQueueMgr.Shutdown(ctx); err != nil {
		a.logger.Warn("write queue shutdown failed", zap.Error(err))
	}
	if err := a.workerPool.Shutdown(ctx); err != nil {
		a.logger.Warn("worker pool shutdown failed", zap.Error(err))
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			return fmt.Errorf("close store failed: %w", err)
		}
		a.logger.Info("Store closed")
	}
	return nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// SubmitTask 提交任务到 Worker Pool
// 返回错误如果池已满或已关闭
func (a *App) SubmitTask(ctx context.Context, task func(context.Context) error) error {
	return a.workerPool.Submit(ctx, task)
}

// SubmitTaskAsync 异步提交任务到 Worker Pool（不等待结果）
func (a *App) SubmitTaskAsync(ctx context.Context, task func(context.Context) error) error {
	return a.workerPool.SubmitAsync(ctx, task)
}

// Version 获取版本信息
func (a *App) Version() pkgapp.VersionInfo {
	return pkgapp.VersionInfo{
		Version:   Version,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// CheckVersion 获取版本检查信息
func (a *App) CheckVersion() pkgapp.CheckVersionInfo {
	a.checkVersionMu.RLock()
	defer a.checkVersionMu.RUnlock()

	cv := a.checkVersion

	// 如果没有更新，把版本名称设置为空
	if !cv.VersionIsNew {
		cv.VersionNewName = ""
	}

	// 返回给客户端的版本号不带 v 前缀
	cv.VersionNewName = strings.TrimPrefix(cv.VersionNewName, "v")
	// 补充链接信息
	if cv.VersionNewLink == "" && cv.VersionNewName != "" {
		cv.VersionNewLink = "https://github.com/anchored-notes/anchored-sync-service/releases/tag/" + cv.VersionNewName
	}

	return cv
}

// SetCheckVersionInfo 设置版本检查信息
func (a *App) SetCheckVersionInfo(info pkgapp.CheckVersionInfo) {
	a.checkVersionMu.Lock()
	defer a.checkVersionMu.Unlock()

	if info.VersionNewName != "" {
		v1 := Version
		if !strings.HasPrefix(v1, "v") {
			v1 = "v" + v1
		}
		v2 := info.VersionNewName
		if !strings.HasPrefix(v2, "v") {
			v2 = "v" + v2
		}
		info.VersionIsNew = semver.Compare(v2, v1) > 0
	}

	a.checkVersion = info
}

// GetAuthToken 获取访问令牌
func (a *App) GetAuthToken() string {
	return a.config.Security.AuthToken
}

// IsProductionMode 是否为生产模式
// 根据日志配置中的 Production 字段判断
func (a *App) IsProductionMode() bool {
	return a.config.Log.Production
}

// ExecuteWrite 执行写操作（通过 Write Queue 串行化）
func (a *App) ExecuteWrite(ctx context.Context, key string, fn func() error) error {
	return a.writeQueueMgr.Execute(ctx, key, fn)
}

// WorkerPool 获取 Worker Pool（用于高级操作）
func (a *App) WorkerPool() *workerpool.Pool {
	return a.workerPool
}

// WriteQueueManager 获取 Write Queue Manager（用于高级操作）
func (a *App) WriteQueueManager() *writequeue.Manager {
	return a.writeQueueMgr
}

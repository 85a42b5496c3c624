package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/anchored-notes/anchored-sync-service/global"
	internalApp "github.com/anchored-notes/anchored-sync-service/internal/app"
	"github.com/anchored-notes/anchored-sync-service/internal/kvstore"
	"github.com/anchored-notes/anchored-sync-service/internal/routers"
	"github.com/anchored-notes/anchored-sync-service/internal/routers/websocket_router"
	"github.com/anchored-notes/anchored-sync-service/internal/task"
	"github.com/anchored-notes/anchored-sync-service/pkg/logger"
	"github.com/anchored-notes/anchored-sync-service/pkg/safe_close"
	"github.com/anchored-notes/anchored-sync-service/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	validatorV10 "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"go.uber.org/zap"
)

// defaultSecretKeys 定义需要检测的默认密钥列表
var defaultSecretKeys = []string{
	"anchored-sync-Auth-Token",
}

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

type Server struct {
	logger            *zap.Logger             // 日志对象
	config            *internalApp.AppConfig  // 应用配置（注入的依赖）
	ut                *ut.UniversalTranslator // 翻译器
	httpServer        *http.Server
	privateHttpServer *http.Server
	sc                *safe_close.SafeClose
	app               *internalApp.App // App Container
	eventServer       *websocket_router.EventServer
}

// checkSecurityConfigWithConfig 检查安全配置，如果使用默认密钥则输出警告
func checkSecurityConfigWithConfig(cfg *internalApp.AppConfig, lg *zap.Logger) {
	isDefault := cfg.Security.AuthToken == ""
	for _, key := range defaultSecretKeys {
		if cfg.Security.AuthToken == key {
			isDefault = true
			break
		}
	}

	if isDefault {
		// 输出到控制台
		fmt.Println()
		fmt.Println(strings.Repeat("=", 60))
		fmt.Println("⚠️  SECURITY WARNING: API authentication is not protected!")
		fmt.Println()
		fmt.Println("Please set 'security.auth-token' in config.yaml")
		fmt.Println("Generate a secure token with:")
		fmt.Println("  openssl rand -base64 32")
		fmt.Println(strings.Repeat("=", 60))
		fmt.Println()

		// 记录到日志
		if lg != nil {
			lg.Warn("API authentication disabled or using default token - please change security.auth-token in config.yaml")
		}
	}
}

func NewServer(runEnv *runFlags) (*Server, error) {

	// 使用 LoadConfig 直接加载配置到 AppConfig
	appConfig, configRealpath, err := internalApp.LoadConfig(runEnv.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 命令行参数覆盖配置文件
	if len(runEnv.port) > 0 {
		appConfig.Server.HttpPort = runEnv.port
		if !strings.HasPrefix(appConfig.Server.HttpPort, ":") {
			appConfig.Server.HttpPort = ":" + appConfig.Server.HttpPort
		}
	}

	// 确定运行模式
	runMode := runEnv.runMode
	if len(runMode) <= 0 {
		runMode = appConfig.Server.RunMode
	}

	if len(runMode) > 0 {
		gin.SetMode(runMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: appConfig,
		sc:     safe_close.NewSafeClose(),
	}

	// 初始化日志器（使用注入的配置）
	if err := initLoggerWithConfig(s, appConfig); err != nil {
		return nil, fmt.Errorf("initLogger: %w", err)
	}

	// 检查安全配置（使用注入的配置）
	checkSecurityConfigWithConfig(appConfig, s.logger)

	// 初始化存储目录（使用注入的配置）
	if err := initStorageWithConfig(appConfig); err != nil {
		return nil, fmt.Errorf("initStorage: %w", err)
	}

	// 初始化 App Container（直接使用 AppConfig）
	app, err := internalApp.NewApp(appConfig, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create app container: %w", err)
	}
	s.app = app

	// 初始化验证器
	uni, err := initValidatorWithLogger(s.logger)
	if err != nil {
		return nil, fmt.Errorf("initValidator: %w", err)
	}
	s.ut = uni

	// 启动调度器
	initScheduler(s)

	banner := `
    ___                __                        __   _____
   /   |  ____  _____/ /_  ____  ________  ____/ /  / ___/__  ______  _____
  / /| | / __ \/ ___/ __ \/ __ \/ ___/ _ \/ __  /   \__ \/ / / / __ \/ ___/
 / ___ |/ / / / /__/ / / / /_/ / /  /  __/ /_/ /   ___/ / /_/ / / / / /__
/_/  |_/_/ /_/\___/_/ /_/\____/_/   \___/\__,_/   /____/\__, /_/ /_/\___/
                                                       /____/              `
	s.logger.Warn(fmt.Sprintf("%s\n\n%s v%s\nGit: %s\nBuildTime: %s\n", banner, internalApp.Name, internalApp.Version, internalApp.GitTag, internalApp.BuildTime))

	s.logger.Warn("config loaded", zap.String("path", configRealpath))

	// 启动 HTTP API 服务器
	if httpAddr := appConfig.Server.HttpPort; len(httpAddr) > 0 {
		s.logger.Warn("api_router", zap.String("config.server.HttpPort", appConfig.Server.HttpPort))

		engine, eventServer := routers.NewRouter(s.app, s.ut)
		s.eventServer = eventServer

		s.httpServer = &http.Server{
			Addr:           appConfig.Server.HttpPort,
			Handler:        engine,
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
			defer done()
			errChan := make(chan error, 1)
			go func() {
				errChan <- s.httpServer.ListenAndServe()
			}()
			select {
			case err := <-errChan:
				s.logger.Error("api service err", zap.Error(err))
				s.sc.SendCloseSignal(err)
			case <-closeSignal:

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				// 停止 HTTP 服务器
				if err := s.httpServer.Shutdown(ctx); err != nil {
					s.logger.Error("api service shutdown error", zap.Error(err))
				}
			}
		})
	}

	// 启动私有 HTTP 服务器（metrics / pprof）
	if httpAddr := appConfig.Server.PrivateHttpListen; len(httpAddr) > 0 {
		s.logger.Warn("api_router", zap.String("config.server.PrivateHttpListen", appConfig.Server.PrivateHttpListen))

		s.privateHttpServer = &http.Server{
			Addr:           appConfig.Server.PrivateHttpListen,
			Handler:        routers.NewPrivateRouter(appConfig.Server.RunMode, s.logger),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
			defer done()
			errChan := make(chan error, 1)
			go func() {
				errChan <- s.privateHttpServer.ListenAndServe()
			}()
			select {
			case err := <-errChan:
				s.logger.Error("private api service err", zap.Error(err))
				s.sc.SendCloseSignal(err)
			case <-closeSignal:

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				// 停止私有 HTTP 服务器
				if err := s.privateHttpServer.Shutdown(ctx); err != nil {
					s.logger.Error("private api service shutdown error", zap.Error(err))
				}
			}
		})
	}

	// 注册 App Container 的优雅关闭
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		<-closeSignal

		if s.eventServer != nil {
			s.eventServer.Close()
		}

		if s.app != nil {
			// 使用带超时的优雅关闭
			ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
			defer cancel()

			if err := s.app.Close(ctx); err != nil {
				s.logger.Error("failed to shutdown app container", zap.Error(err))
			} else {
				s.logger.Info("App container shutdown gracefully")
			}
		}
	})

	return s, nil
}

func initScheduler(s *Server) {
	// 创建任务管理器
	manager := task.NewManager(s.app, s.sc)

	// 注册所有任务（业务层控制）
	if err := manager.RegisterTasks(); err != nil {
		s.logger.Error("failed to register tasks", zap.Error(err))
		return
	}

	// 启动任务调度器
	manager.Start()
}

// initLoggerWithConfig 初始化日志器（使用注入的配置）
func initLoggerWithConfig(s *Server, cfg *internalApp.AppConfig) error {
	lg, err := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		Production: cfg.Log.Production,
	})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	s.logger = lg
	global.Logger = lg

	return nil
}

// initValidatorWithLogger 初始化验证器，返回 UniversalTranslator
func initValidatorWithLogger(lg *zap.Logger) (*ut.UniversalTranslator, error) {
	customValidator := validator.NewCustomValidator()
	customValidator.Engine()
	binding.Validator = customValidator

	var uni *ut.UniversalTranslator

	validate, ok := binding.Validator.Engine().(*validatorV10.Validate)
	if ok {

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		uni = ut.New(en.New(), en.New(), zh.New())

		zhTran, _ := uni.GetTranslator("zh")
		enTran, _ := uni.GetTranslator("en")

		err := zh_translations.RegisterDefaultTranslations(validate, zhTran)
		if err != nil {
			return nil, err
		}
		err = en_translations.RegisterDefaultTranslations(validate, enTran)
		if err != nil {
			return nil, err
		}
	}

	return uni, nil
}

// initStorageWithConfig 初始化存储目录（使用注入的配置）
func initStorageWithConfig(cfg *internalApp.AppConfig) error {
	dirs := []string{
		filepath.Dir(cfg.Log.File),
	}

	switch cfg.Store.Type {
	case kvstore.LocalFS:
		dirs = append(dirs, filepath.Dir(cfg.Store.SavePath))
	case kvstore.Database:
		if cfg.Store.DBType == "sqlite" {
			dirs = append(dirs, filepath.Dir(cfg.Store.Path))
		}
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0754); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetApp 获取 App Container
func (s *Server) GetApp() *internalApp.App {
	return s.app
}

// GetConfig 获取应用配置
func (s *Server) GetConfig() *internalApp.AppConfig {
	return s.config
}

// Package app provides the application container wiring all dependencies and services.
package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/anchored-notes/anchored-sync-service/internal/kvstore"
	"github.com/anchored-notes/anchored-sync-service/pkg/blobstore"
	"github.com/anchored-notes/anchored-sync-service/pkg/util"
	"github.com/anchored-notes/anchored-sync-service/pkg/workerpool"
	"github.com/anchored-notes/anchored-sync-service/pkg/writequeue"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AppConfig 应用配置
type AppConfig struct {
	File     string         `yaml:"-"` // config file path, not serialized
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Store    kvstore.Config `yaml:"store"`
	App      AppSettings    `yaml:"app"`
	Security SecurityConfig `yaml:"security"`
	Backup   BackupConfig   `yaml:"backup"`
	Tracer   TracerConfig   `yaml:"tracer"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level log level, see zapcore.ParseLevel
	Level string `yaml:"level" default:"warn"`
	// File log file path
	File string `yaml:"file" default:"storage/logs/log.log"`
	// Production enables JSON output
	Production bool `yaml:"production" default:"true"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// RunMode gin run mode
	RunMode string `yaml:"run-mode" default:"release"`
	// HttpPort HTTP listen address
	HttpPort string `yaml:"http-port" default:":9000"`
	// PrivateHttpListen 私有 HTTP 监听地址
	// metrics and pprof, empty disables the private listener
	PrivateHttpListen string `yaml:"private-http-listen" default:":9001"`
	// ReadTimeout read timeout in seconds
	ReadTimeout int `yaml:"read-timeout" default:"60"`
	// WriteTimeout write timeout in seconds
	WriteTimeout int `yaml:"write-timeout" default:"60"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	// AuthToken shared access token, empty disables authentication
	AuthToken string `yaml:"auth-token"`
}

// AppSettings 应用设置
type AppSettings struct {
	// DefaultPageSize 默认页面大小
	DefaultPageSize int `yaml:"default-page-size" default:"20"`
	// MaxPageSize 最大页面大小
	MaxPageSize int `yaml:"max-page-size" default:"200"`
	// DefaultContextTimeout 默认上下文超时时间
	DefaultContextTimeout int `yaml:"default-context-timeout" default:"60"`
	// ExportSource source tag stamped into export envelopes
	ExportSource string `yaml:"export-source" default:"anchored-sync-service"`
	// SoftDeleteRetentionTime how long soft-deleted notes are kept before purge
	SoftDeleteRetentionTime string `yaml:"soft-delete-retention-time" default:"30d"`
	// AcceptEncryptedNotes whether this deployment can hold encrypted note payloads
	AcceptEncryptedNotes bool `yaml:"accept-encrypted-notes" default:"true"`

	// Worker Pool 配置
	WorkerPoolMaxWorkers int `yaml:"worker-pool-max-workers" default:"100"`
	WorkerPoolQueueSize  int `yaml:"worker-pool-queue-size" default:"1000"`

	// Write Queue 配置
	WriteQueueCapacity int    `yaml:"write-queue-capacity" default:"100"`
	WriteQueueTimeout  string `yaml:"write-queue-timeout" default:"30s"`
	WriteQueueIdleTime string `yaml:"write-queue-idle-time" default:"10m"`
}

// BackupConfig 备份配置
type BackupConfig struct {
	// Enabled enables the scheduled backup task
	Enabled bool `yaml:"enabled" default:"false"`
	// Cron backup schedule, standard 5-field cron expression
	Cron string `yaml:"cron" default:"0 3 * * *"`
	// Targets backup destinations
	Targets []*blobstore.Config `yaml:"targets"`
}

// TracerConfig 请求追踪配置
type TracerConfig struct {
	// Enabled 是否启用追踪
	Enabled bool `yaml:"enabled" default:"true"`
	// Header trace ID header name, default X-Trace-ID
	Header string `yaml:"header" default:"X-Trace-ID"`
}

// LoadConfig 从文件加载配置
// Returns the config instance and the absolute path of the config file.
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	c := new(AppConfig)
	c.File = realpath

	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "set default config failed")
	}

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	err = yaml.Unmarshal(file, c)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "parse config file failed")
	}

	// defaults.Set only fills zero-valued fields, so a second pass
	// repairs fields the YAML left empty.
	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "re-set default config failed")
	}

	return c, realpath, nil
}

// Save 保存配置到文件
func (c *AppConfig) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}

	err = os.WriteFile(c.File, data, 0644)
	if err != nil {
		return errors.Wrap(err, "write config file failed")
	}

	return nil
}

// GetWorkerPoolConfig 获取 Worker Pool 配置
func (c *AppConfig) GetWorkerPoolConfig() workerpool.Config {
	cfg := workerpool.DefaultConfig()

	if c.App.WorkerPoolMaxWorkers > 0 {
		cfg.MaxWorkers = c.App.WorkerPoolMaxWorkers
	}
	if c.App.WorkerPoolQueueSize > 0 {
		cfg.QueueSize = c.App.WorkerPoolQueueSize
	}

	return cfg
}

// GetWriteQueueConfig 获取 Write Queue 配置
func (c *AppConfig) GetWriteQueueConfig() writequeue.Config {
	cfg := writequeue.DefaultConfig()

	if c.App.WriteQueueCapacity > 0 {
		cfg.QueueCapacity = c.App.WriteQueueCapacity
	}
	if c.App.WriteQueueTimeout != "" {
		if timeout, err := util.ParseDuration(c.App.WriteQueueTimeout); err == nil {
			cfg.WriteTimeout = timeout
		}
	}
	if c.App.WriteQueueIdleTime != "" {
		if idleTime, err := util.ParseDuration(c.App.WriteQueueIdleTime); err == nil {
			cfg.IdleTimeout = idleTime
		}
	}

	return cfg
}

// GetSoftDeleteRetention 获取软删除保留时间
func (c *AppConfig) GetSoftDeleteRetention() time.Duration {
	if d, err := util.ParseDuration(c.App.SoftDeleteRetentionTime); err == nil {
		return d
	}
	return 30 * 24 * time.Hour // unreachable in practice, the default tag covers it
}

// GetContextTimeout 获取默认上下文超时时间
func (c *AppConfig) GetContextTimeout() time.Duration {
	if c.App.DefaultContextTimeout > 0 {
		return time.Duration(c.App.DefaultContextTimeout) * time.Second
	}
	return 60 * time.Second
}

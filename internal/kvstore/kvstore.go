// Package kvstore provides the flat key-value storage backends the
// note repository runs on.
package kvstore

import (
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/internal/kvstore/database"
	"github.com/anchored-notes/anchored-sync-service/internal/kvstore/localfs"
	"github.com/anchored-notes/anchored-sync-service/internal/kvstore/memory"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

type Type = string

const (
	Memory   Type = "memory"
	LocalFS  Type = "localfs"
	Database Type = "database"
)

var StoreTypeMap = map[Type]bool{
	Memory:   true,
	LocalFS:  true,
	Database: true,
}

// Config unified store configuration
type Config struct {
	// Type store backend: memory, localfs, database
	Type Type `yaml:"type" default:"localfs"`

	// Local FS
	// SavePath store file path
	SavePath string `yaml:"save-path" default:"storage/notes.json"`

	// Database
	// DBType database type: sqlite, mysql, postgres
	DBType string `yaml:"db-type" default:"sqlite"`
	// Path SQLite database file path
	Path string `yaml:"path" default:"storage/database/db.sqlite3"`
	// UserName database user
	UserName string `yaml:"username"`
	// Password database password
	Password string `yaml:"password"`
	// Host database host
	Host string `yaml:"host"`
	// Name database name
	Name string `yaml:"name"`
	// TablePrefix table prefix
	TablePrefix string `yaml:"table-prefix"`
	// Charset connection charset (mysql)
	Charset string `yaml:"charset" default:"utf8mb4"`
	// ParseTime parse time columns (mysql)
	ParseTime bool `yaml:"parse-time" default:"true"`
	// MaxIdleConns max idle connections
	MaxIdleConns int `yaml:"max-idle-conns" default:"10"`
	// MaxOpenConns max open connections
	MaxOpenConns int `yaml:"max-open-conns" default:"30"`
}

// NewStore creates the configured store backend.
func NewStore(cfg *Config, logger *zap.Logger) (domain.Store, error) {
	if cfg == nil {
		return nil, code.ErrorInvalidStoreType
	}

	switch cfg.Type {
	case Memory:
		return memory.NewStore(), nil
	case LocalFS:
		return localfs.NewStore(&localfs.Config{
			SavePath: cfg.SavePath,
		}, logger)
	case Database:
		return database.NewStore(&database.Config{
			Type:         cfg.DBType,
			Path:         cfg.Path,
			UserName:     cfg.UserName,
			Password:     cfg.Password,
			Host:         cfg.Host,
			Name:         cfg.Name,
			TablePrefix:  cfg.TablePrefix,
			Charset:      cfg.Charset,
			ParseTime:    cfg.ParseTime,
			MaxIdleConns: cfg.MaxIdleConns,
			MaxOpenConns: cfg.MaxOpenConns,
		}, logger)
	default:
		return nil, code.ErrorInvalidStoreType.WithDetails(cfg.Type)
	}
}

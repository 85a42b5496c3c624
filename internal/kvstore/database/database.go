// Package database is the gorm-backed store backend for sqlite, mysql
// and postgres.
package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/haierkeys/gormTracing"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/pkg/fileurl"
)

// Config database store configuration
type Config struct {
	// Type database type: sqlite, mysql, postgres
	Type string
	// Path SQLite database file path
	Path string
	// UserName database user
	UserName string
	// Password database password
	Password string
	// Host database host
	Host string
	// Name database name
	Name string
	// TablePrefix table prefix
	TablePrefix string
	// Charset connection charset (mysql)
	Charset string
	// ParseTime parse time columns (mysql)
	ParseTime bool
	// MaxIdleConns max idle connections
	MaxIdleConns int
	// MaxOpenConns max open connections
	MaxOpenConns int
}

// bucketRow is one stored key.
type bucketRow struct {
	Key       string    `gorm:"column:key;primaryKey;size:255"`
	Value     []byte    `gorm:"column:value"`
	Version   int64     `gorm:"column:version;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (bucketRow) TableName() string {
	return "bucket"
}

// Store runs the key-value contract on a relational table.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore opens the database and migrates the bucket table.
func NewStore(cfg *Config, logger *zap.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("database: config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   cfg.TablePrefix,
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "database: open")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database: pool")
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(time.Minute * 10)

	_ = db.Use(&gormTracing.OpentracingPlugin{})

	if err := db.AutoMigrate(&bucketRow{}); err != nil {
		return nil, errors.Wrap(err, "database: migrate bucket table")
	}

	logger.Info("database store ready", zap.String("type", cfg.Type))

	return &Store{db: db, logger: logger}, nil
}

func dialectorFor(cfg *Config) (gorm.Dialector, error) {
	switch cfg.Type {
	case "sqlite":
		if !fileurl.IsExist(cfg.Path) {
			if err := fileurl.CreatePath(cfg.Path, os.ModePerm); err != nil {
				return nil, errors.Wrap(err, "database: create sqlite directory")
			}
		}
		return sqlite.Open(cfg.Path), nil
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.UserName,
			cfg.Password,
			cfg.Host,
			cfg.Name,
			cfg.Charset,
			cfg.ParseTime,
		)), nil
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host,
			cfg.UserName,
			cfg.Password,
			cfg.Name,
		)), nil
	default:
		return nil, errors.Errorf("database: unsupported type %q", cfg.Type)
	}
}

func (s *Store) Get(ctx context.Context, keys ...string) (map[string]domain.BucketValue, error) {
	var rows []bucketRow
	q := s.db.WithContext(ctx)
	if len(keys) > 0 {
		q = q.Where("key IN ?", keys)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "database: get")
	}

	out := make(map[string]domain.BucketValue, len(rows))
	for _, row := range rows {
		out[row.Key] = domain.BucketValue{Data: row.Value, Version: row.Version}
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte) (int64, error) {
	var version int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row bucketRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).First(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		version = row.Version + 1
		row = bucketRow{Key: key, Value: data, Version: version, UpdatedAt: time.Now()}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "version", "updated_at"}),
		}).Create(&row).Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "database: set")
	}
	return version, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, data []byte, expect int64) (int64, error) {
	next := expect + 1

	if expect == 0 {
		row := bucketRow{Key: key, Value: data, Version: next, UpdatedAt: time.Now()}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			return 0, errors.Wrap(err, "database: insert")
		}
		if s.db.WithContext(ctx).Where("key = ? AND version = ?", key, next).
			First(&bucketRow{}).Error != nil {
			return 0, domain.ErrVersionConflict
		}
		return next, nil
	}

	res := s.db.WithContext(ctx).Model(&bucketRow{}).
		Where("key = ? AND version = ?", key, expect).
		Updates(map[string]interface{}{
			"value":      data,
			"version":    next,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "database: compare and swap")
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrVersionConflict
	}
	return next, nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Where("key IN ?", keys).Delete(&bucketRow{}).Error
	return errors.Wrap(err, "database: remove")
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).Model(&bucketRow{}).Pluck("key", &keys).Error
	if err != nil {
		return nil, errors.Wrap(err, "database: keys")
	}
	return keys, nil
}

func (s *Store) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("1 = 1").Delete(&bucketRow{}).Error
	return errors.Wrap(err, "database: clear")
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

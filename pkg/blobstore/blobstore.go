// Package blobstore uploads backup artifacts to local or remote
// targets.
package blobstore

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/pkg/blobstore/aws_s3"
	"github.com/anchored-notes/anchored-sync-service/pkg/blobstore/cloudflare_r2"
	"github.com/anchored-notes/anchored-sync-service/pkg/blobstore/local_fs"
	"github.com/anchored-notes/anchored-sync-service/pkg/blobstore/webdav"
)

type Type = string

const (
	LOCAL  Type = "localfs"
	S3     Type = "s3"
	R2     Type = "r2"
	WebDAV Type = "webdav"
)

var TargetTypeMap = map[Type]bool{
	LOCAL:  true,
	S3:     true,
	R2:     true,
	WebDAV: true,
}

// Config unified backup target configuration
type Config struct {
	Type Type `yaml:"type"`

	// IsEnabled whether this target receives backups
	IsEnabled bool `yaml:"is-enable"`
	// CustomPath key prefix inside the target
	CustomPath string `yaml:"custom-path"`

	// Cloud storage (S3/R2)
	Region          string `yaml:"region"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	AccountID       string `yaml:"account-id"` // Cloudflare R2 specific

	// WebDAV
	Endpoint string `yaml:"endpoint"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Path     string `yaml:"path"`

	// Local FS
	SavePath string `yaml:"save-path"`
}

// Storager uploads and deletes backup blobs.
type Storager interface {
	SendContent(pathKey string, content []byte) (string, error)
	Delete(pathKey string) error
}

// NewClient creates the client for a backup target.
func NewClient(config *Config, logger *zap.Logger) (Storager, error) {
	if config == nil {
		return nil, errors.New("blobstore: config is required")
	}

	switch config.Type {
	case LOCAL:
		return local_fs.NewClient(&local_fs.Config{
			SavePath:   config.SavePath,
			CustomPath: config.CustomPath,
		})
	case S3:
		return aws_s3.NewClient(&aws_s3.Config{
			Region:          config.Region,
			BucketName:      config.BucketName,
			AccessKeyID:     config.AccessKeyID,
			AccessKeySecret: config.AccessKeySecret,
			CustomPath:      config.CustomPath,
		}, aws_s3.WithLogger(logger))
	case R2:
		return cloudflare_r2.NewClient(&cloudflare_r2.Config{
			AccountID:       config.AccountID,
			BucketName:      config.BucketName,
			AccessKeyID:     config.AccessKeyID,
			AccessKeySecret: config.AccessKeySecret,
			CustomPath:      config.CustomPath,
		}, cloudflare_r2.WithLogger(logger))
	case WebDAV:
		return webdav.NewClient(&webdav.Config{
			Endpoint:   config.Endpoint,
			User:       config.User,
			Password:   config.Password,
			Path:       config.Path,
			CustomPath: config.CustomPath,
		})
	default:
		return nil, errors.Errorf("blobstore: unsupported target type %q", config.Type)
	}
}

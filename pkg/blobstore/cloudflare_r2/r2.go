// Package cloudflare_r2 uploads backup blobs to Cloudflare R2 through
// its S3-compatible endpoint.
package cloudflare_r2

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/pkg/fileurl"
)

// Config R2 target configuration
type Config struct {
	AccountID       string `yaml:"account-id"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	CustomPath      string `yaml:"custom-path"`
}

type R2 struct {
	S3Client *s3.Client
	Config   *Config
	logger   *zap.Logger
}

// Option 配置选项函数类型
type Option func(*R2)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(r *R2) {
		if logger != nil {
			r.logger = logger
		}
	}
}

var (
	clientsMu sync.Mutex
	clients   = make(map[string]*R2)
)

// NewClient creates an R2 client, reusing one per access key.
func NewClient(conf *Config, opts ...Option) (*R2, error) {
	clientsMu.Lock()
	defer clientsMu.Unlock()

	if c := clients[conf.AccessKeyID]; c != nil {
		for _, opt := range opts {
			opt(c)
		}
		return c, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.AccessKeyID, conf.AccessKeySecret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "cloudflare_r2")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", conf.AccountID))
	})

	c := &R2{
		S3Client: client,
		Config:   conf,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	clients[conf.AccessKeyID] = c
	return c, nil
}

// SendContent uploads binary content.
func (p *R2) SendContent(pathKey string, content []byte) (string, error) {
	pathKey = fileurl.PathSuffixCheckAdd(p.Config.CustomPath, "/") + pathKey

	_, err := p.S3Client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(pathKey),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return "", errors.Wrap(err, "cloudflare_r2")
	}
	return pathKey, nil
}

func (p *R2) Delete(pathKey string) error {
	pathKey = fileurl.PathSuffixCheckAdd(p.Config.CustomPath, "/") + pathKey

	_, err := p.S3Client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(pathKey),
	})
	return errors.Wrap(err, "cloudflare_r2")
}

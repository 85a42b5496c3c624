// Package aws_s3 uploads backup blobs to Amazon S3.
package aws_s3

import (
	"bytes"
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/pkg/fileurl"
)

// Config S3 target configuration
type Config struct {
	Region          string `yaml:"region"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	CustomPath      string `yaml:"custom-path"`
}

type S3 struct {
	S3Client *s3.Client
	Config   *Config
	logger   *zap.Logger
}

// Option 配置选项函数类型
type Option func(*S3)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3) {
		if logger != nil {
			s.logger = logger
		}
	}
}

var (
	clientsMu sync.Mutex
	clients   = make(map[string]*S3)
)

// NewClient creates an S3 client, reusing one per access key.
func NewClient(conf *Config, opts ...Option) (*S3, error) {
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
		config.WithRegion(conf.Region),
	)
	if err != nil {
		return nil, errors.Wrap(err, "aws_s3")
	}

	c := &S3{
		S3Client: s3.NewFromConfig(cfg),
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
func (p *S3) SendContent(pathKey string, content []byte) (string, error) {
	pathKey = fileurl.PathSuffixCheckAdd(p.Config.CustomPath, "/") + pathKey

	_, err := p.S3Client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(pathKey),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return "", errors.Wrap(err, "aws_s3")
	}
	return pathKey, nil
}

func (p *S3) Delete(pathKey string) error {
	pathKey = fileurl.PathSuffixCheckAdd(p.Config.CustomPath, "/") + pathKey

	_, err := p.S3Client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(pathKey),
	})
	return errors.Wrap(err, "aws_s3")
}

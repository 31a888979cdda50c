package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/freedkr/paycheck/internal/config"
)

// BlobReader 按桶和对象名读取内容
type BlobReader interface {
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// GCSStorage Google Cloud Storage只读访问
type GCSStorage struct {
	client *storage.Client
}

// NewGCSStorage 创建GCS客户端
func NewGCSStorage(ctx context.Context, cfg config.GCSConfig) (*GCSStorage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建GCS客户端失败: %w", err)
	}
	return &GCSStorage{client: client}, nil
}

// NewReader 打开对象
func (g *GCSStorage) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取GCS对象失败 gs://%s/%s: %w", bucket, object, err)
	}
	return r, nil
}

// Close 关闭客户端
func (g *GCSStorage) Close() error {
	return g.client.Close()
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/freedkr/paycheck/internal/config"
	"github.com/freedkr/paycheck/internal/model"
)

// Fetcher 将file_url解析为文档字节
type Fetcher interface {
	Fetch(ctx context.Context, fileURL string) ([]byte, error)
}

// Resolver 根据URL scheme选择来源：本地文件、HTTP、MinIO、GCS
type Resolver struct {
	config     config.SourceConfig
	httpClient *http.Client
	objects    ObjectStore
	blobs      BlobReader
}

// ResolverOption Resolver可选项
type ResolverOption func(*Resolver)

// WithObjectStore 启用 minio:// 与 s3:// 来源
func WithObjectStore(store ObjectStore) ResolverOption {
	return func(r *Resolver) { r.objects = store }
}

// WithBlobReader 启用 gs:// 来源
func WithBlobReader(blobs BlobReader) ResolverOption {
	return func(r *Resolver) { r.blobs = blobs }
}

// WithHTTPClient 替换HTTP客户端
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) { r.httpClient = client }
}

// NewResolver 创建来源解析器
func NewResolver(cfg config.SourceConfig, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch 获取文档内容
func (r *Resolver) Fetch(ctx context.Context, fileURL string) ([]byte, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return nil, model.NewFetchError("parse", "invalid file_url", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "", "file":
		path := fileURL
		if u.Scheme != "" {
			path = u.Path
		}
		return r.fetchLocal(path)
	case "http", "https":
		return r.fetchHTTP(ctx, fileURL)
	case "minio":
		return r.fetchObject(ctx, "", strings.TrimPrefix(u.Host+u.Path, "/"))
	case "s3":
		return r.fetchObject(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	case "gs":
		return r.fetchBlob(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	default:
		return nil, model.NewFetchError(u.Scheme, "unsupported file_url scheme", nil)
	}
}

func (r *Resolver) fetchLocal(path string) ([]byte, error) {
	if !r.config.AllowLocal {
		return nil, model.NewFetchError("file", "local file sources are disabled", nil)
	}

	clean := filepath.Clean(path)
	if r.config.LocalRoot != "" {
		root, err := filepath.Abs(r.config.LocalRoot)
		if err != nil {
			return nil, model.NewFetchError("file", "invalid local root", err)
		}
		if !filepath.IsAbs(clean) {
			clean = filepath.Join(root, clean)
		}
		rel, err := filepath.Rel(root, clean)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, model.NewFetchError("file", "path outside local root", err)
		}
	}

	f, err := os.Open(clean)
	if err != nil {
		return nil, model.NewFetchError("file", "open pay stub", err)
	}
	defer f.Close()
	return r.readLimited(f, "file")
}

func (r *Resolver) fetchHTTP(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, model.NewFetchError("http", "build request", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, model.NewTimeoutError("source", "http", err)
		}
		return nil, model.NewFetchError("http", "download pay stub", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, model.NewFetchError("http", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return r.readLimited(resp.Body, "http")
}

func (r *Resolver) fetchObject(ctx context.Context, bucket, object string) ([]byte, error) {
	if r.objects == nil {
		return nil, model.NewFetchError("minio", "object storage is not configured", nil)
	}
	if object == "" {
		return nil, model.NewFetchError("minio", "missing object name", nil)
	}

	info, err := r.objects.GetFileInfo(ctx, bucket, object)
	if err != nil {
		return nil, model.NewFetchError("minio", "stat pay stub", err)
	}
	if info.Size > r.config.MaxBytes {
		return nil, model.NewFetchError("minio", fmt.Sprintf("pay stub exceeds %d bytes", r.config.MaxBytes), nil)
	}

	rc, err := r.objects.DownloadFile(ctx, bucket, object)
	if err != nil {
		return nil, model.NewFetchError("minio", "download pay stub", err)
	}
	defer rc.Close()
	return r.readLimited(rc, "minio")
}

func (r *Resolver) fetchBlob(ctx context.Context, bucket, object string) ([]byte, error) {
	if r.blobs == nil {
		return nil, model.NewFetchError("gs", "cloud storage is not configured", nil)
	}
	if bucket == "" || object == "" {
		return nil, model.NewFetchError("gs", "gs:// url needs bucket and object", nil)
	}

	rc, err := r.blobs.NewReader(ctx, bucket, object)
	if err != nil {
		return nil, model.NewFetchError("gs", "download pay stub", err)
	}
	defer rc.Close()
	return r.readLimited(rc, "gs")
}

func (r *Resolver) readLimited(src io.Reader, source string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(src, r.config.MaxBytes+1))
	if err != nil {
		return nil, model.NewFetchError(source, "read pay stub", err)
	}
	if int64(len(data)) > r.config.MaxBytes {
		return nil, model.NewFetchError(source, fmt.Sprintf("pay stub exceeds %d bytes", r.config.MaxBytes), nil)
	}
	return data, nil
}

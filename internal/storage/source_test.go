package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/freedkr/paycheck/internal/config"
	"github.com/freedkr/paycheck/internal/model"
)

// MockObjectStore 对象存储Mock
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) EnsureBucket(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockObjectStore) UploadFile(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	args := m.Called(ctx, objectName, reader, objectSize, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) DownloadFile(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, objectName)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *MockObjectStore) GetFileInfo(ctx context.Context, bucket, objectName string) (*FileInfo, error) {
	args := m.Called(ctx, bucket, objectName)
	info, _ := args.Get(0).(*FileInfo)
	return info, args.Error(1)
}

type fakeBlobs struct {
	data         map[string][]byte
	bucket, name string
}

func (f *fakeBlobs) NewReader(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	f.bucket, f.name = bucket, object
	data, ok := f.data[bucket+"/"+object]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func sourceConfig() config.SourceConfig {
	return config.SourceConfig{
		AllowLocal:  true,
		HTTPTimeout: 5 * time.Second,
		MaxBytes:    1024,
	}
}

func TestResolver_Local(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stub.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	r := NewResolver(sourceConfig())
	data, err := r.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	data, err = r.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestResolver_LocalDisabled(t *testing.T) {
	cfg := sourceConfig()
	cfg.AllowLocal = false

	_, err := NewResolver(cfg).Fetch(context.Background(), "/tmp/paystub.pdf")
	require.Error(t, err)
	assert.True(t, model.IsErrorType(err, model.ErrCodeFetch))
}

func TestResolver_LocalRootEscape(t *testing.T) {
	root := t.TempDir()
	cfg := sourceConfig()
	cfg.LocalRoot = root

	_, err := NewResolver(cfg).Fetch(context.Background(), "../../etc/passwd")
	require.Error(t, err)
	assert.True(t, model.IsErrorType(err, model.ErrCodeFetch))
}

func TestResolver_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pdf" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	r := NewResolver(sourceConfig())

	data, err := r.Fetch(context.Background(), srv.URL+"/stub.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	_, err = r.Fetch(context.Background(), srv.URL+"/missing.pdf")
	require.Error(t, err)
	assert.True(t, model.IsErrorType(err, model.ErrCodeFetch))
	assert.Contains(t, err.Error(), "404")
}

func TestResolver_SizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 2048))
	}))
	defer srv.Close()

	_, err := NewResolver(sourceConfig()).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestResolver_MinIO(t *testing.T) {
	store := new(MockObjectStore)
	store.On("GetFileInfo", mock.Anything, "", "uploads/stub.pdf").Return(&FileInfo{Size: 9}, nil)
	store.On("GetFileInfo", mock.Anything, "payroll", "2024/stub.pdf").Return(&FileInfo{Size: 6}, nil)
	store.On("DownloadFile", mock.Anything, "", "uploads/stub.pdf").
		Return(io.NopCloser(bytes.NewReader([]byte("minio-pdf"))), nil)
	store.On("DownloadFile", mock.Anything, "payroll", "2024/stub.pdf").
		Return(io.NopCloser(bytes.NewReader([]byte("s3-pdf"))), nil)

	r := NewResolver(sourceConfig(), WithObjectStore(store))

	data, err := r.Fetch(context.Background(), "minio://uploads/stub.pdf")
	require.NoError(t, err)
	assert.Equal(t, "minio-pdf", string(data))

	data, err = r.Fetch(context.Background(), "s3://payroll/2024/stub.pdf")
	require.NoError(t, err)
	assert.Equal(t, "s3-pdf", string(data))

	store.AssertExpectations(t)
}

func TestResolver_MinIOSizePrecheck(t *testing.T) {
	store := new(MockObjectStore)
	store.On("GetFileInfo", mock.Anything, "payroll", "big.pdf").Return(&FileInfo{Size: 4096}, nil)
	store.On("GetFileInfo", mock.Anything, "payroll", "gone.pdf").Return(nil, errors.New("object not found"))

	r := NewResolver(sourceConfig(), WithObjectStore(store))

	_, err := r.Fetch(context.Background(), "s3://payroll/big.pdf")
	require.Error(t, err)
	assert.True(t, model.IsErrorType(err, model.ErrCodeFetch))
	assert.Contains(t, err.Error(), "exceeds 1024 bytes")

	_, err = r.Fetch(context.Background(), "s3://payroll/gone.pdf")
	require.Error(t, err)
	assert.True(t, model.IsErrorType(err, model.ErrCodeFetch))

	store.AssertNotCalled(t, "DownloadFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_GCS(t *testing.T) {
	blobs := &fakeBlobs{data: map[string][]byte{"payroll/stub.pdf": []byte("gcs-pdf")}}
	r := NewResolver(sourceConfig(), WithBlobReader(blobs))

	data, err := r.Fetch(context.Background(), "gs://payroll/stub.pdf")
	require.NoError(t, err)
	assert.Equal(t, "gcs-pdf", string(data))
	assert.Equal(t, "payroll", blobs.bucket)
	assert.Equal(t, "stub.pdf", blobs.name)

	_, err = r.Fetch(context.Background(), "gs://payroll/absent.pdf")
	assert.True(t, model.IsErrorType(err, model.ErrCodeFetch))
}

func TestResolver_UnconfiguredAndUnsupported(t *testing.T) {
	r := NewResolver(sourceConfig())

	for _, u := range []string{"minio://stub.pdf", "gs://bucket/stub.pdf", "ftp://host/stub.pdf"} {
		_, err := r.Fetch(context.Background(), u)
		require.Error(t, err, u)
		assert.True(t, model.IsErrorType(err, model.ErrCodeFetch), u)
	}
}

func TestReportArchiver_Archive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report-abc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3 report"), 0o600))

	store := new(MockObjectStore)
	store.On("UploadFile", mock.Anything, "reports/req-1/report-abc.pdf", mock.Anything, int64(15), "application/pdf").Return(nil)

	name, err := NewReportArchiver(store, "reports/").Archive(context.Background(), "req-1", &model.Report{Path: path, Size: 15})
	require.NoError(t, err)
	assert.Equal(t, "reports/req-1/report-abc.pdf", name)
	store.AssertExpectations(t)
}

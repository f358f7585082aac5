package minio

import (
	"context"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dissolveproject/dissolve/internal/config"
	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}
func (m *mockAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}
func (m *mockAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}
func (m *mockAPI) SetBucketLifecycle(ctx context.Context, bucketName string, cfg *lifecycle.Configuration) error {
	return m.Called(ctx, bucketName, cfg).Error(0)
}
func (m *mockAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}
func (m *mockAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expiry, reqParams)
	return args.Get(0).(*url.URL), args.Error(1)
}
func (m *mockAPI) PresignedPutObject(ctx context.Context, bucketName, objectName string, expiry time.Duration) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expiry)
	return args.Get(0).(*url.URL), args.Error(1)
}
func (m *mockAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}
func (m *mockAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(*minio.Object), args.Error(1)
}
func (m *mockAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}
func (m *mockAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func TestClient_EnsureBucket_Creates(t *testing.T) {
	api := new(mockAPI)
	c := &Client{api: api, cfg: config.RestartStoreConfig{Bucket: "dissolve-restarts"}, logger: logging.NewNopLogger()}

	api.On("BucketExists", mock.Anything, "dissolve-restarts").Return(false, nil)
	api.On("MakeBucket", mock.Anything, "dissolve-restarts", mock.Anything).Return(nil)

	assert.NoError(t, c.ensureBucket(context.Background()))
	api.AssertNumberOfCalls(t, "MakeBucket", 1)
}

func TestClient_EnsureBucket_AlreadyExists(t *testing.T) {
	api := new(mockAPI)
	c := &Client{api: api, cfg: config.RestartStoreConfig{Bucket: "dissolve-restarts"}, logger: logging.NewNopLogger()}

	api.On("BucketExists", mock.Anything, "dissolve-restarts").Return(true, nil)

	assert.NoError(t, c.ensureBucket(context.Background()))
	api.AssertNumberOfCalls(t, "MakeBucket", 0)
}

func TestClient_Close(t *testing.T) {
	c := &Client{}
	assert.NoError(t, c.Close())
	assert.True(t, c.closed)
}

func TestClient_HealthCheck_Healthy(t *testing.T) {
	api := new(mockAPI)
	c := &Client{api: api, cfg: config.RestartStoreConfig{Bucket: "dissolve-restarts"}, logger: logging.NewNopLogger()}

	api.On("ListBuckets", mock.Anything).Return([]minio.BucketInfo{}, nil)
	api.On("BucketExists", mock.Anything, "dissolve-restarts").Return(true, nil)

	status, err := c.HealthCheck(context.Background())
	assert.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.NotZero(t, status.Latency)
}

func TestClient_HealthCheck_BucketMissing(t *testing.T) {
	api := new(mockAPI)
	c := &Client{api: api, cfg: config.RestartStoreConfig{Bucket: "dissolve-restarts"}, logger: logging.NewNopLogger()}

	api.On("ListBuckets", mock.Anything).Return([]minio.BucketInfo{}, nil)
	api.On("BucketExists", mock.Anything, "dissolve-restarts").Return(false, nil)

	status, err := c.HealthCheck(context.Background())
	assert.NoError(t, err)
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Error, "dissolve-restarts")
}

func TestErrClientClosed(t *testing.T) {
	assert.Error(t, ErrClientClosed)
	assert.Contains(t, ErrClientClosed.Error(), "closed")
}

func TestErrRestartNotFound(t *testing.T) {
	assert.Error(t, ErrRestartNotFound)
	assert.Contains(t, ErrRestartNotFound.Error(), "not found")
}

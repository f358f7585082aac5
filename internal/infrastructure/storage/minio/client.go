// Package minio implements the restart object store (C17): a MinIO/S3-backed
// blob store for `<input>.restart` files, used when a run spans a cluster
// without a shared filesystem. Each run writes its restart blobs into a
// single bucket, keyed by run id and iteration; the checkpoint catalog
// (see internal/infrastructure/database/postgres) indexes the resulting
// locations so a run can resume from its latest point.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/dissolveproject/dissolve/internal/config"
	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

// minioAPI is the subset of *minio.Client methods the restart store depends
// on; it exists so tests can substitute a mock.
type minioAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expiry time.Duration) (*url.URL, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// Client wraps a MinIO connection scoped to a single restart bucket.
type Client struct {
	api    minioAPI
	cfg    config.RestartStoreConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to the configured MinIO endpoint, verifies
// connectivity, and ensures the restart bucket exists.
func NewClient(cfg config.RestartStoreConfig, logger logging.Logger) (*Client, error) {
	raw, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := raw.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to connect to minio")
	}

	c := &Client{api: raw, cfg: cfg, logger: logger}
	if err := c.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("restart object store connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL),
	)
	return c, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "failed to check restart bucket existence")
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, fmt.Sprintf("failed to create restart bucket %s", c.cfg.Bucket))
	}
	c.logger.Info("created restart bucket", logging.String("bucket", c.cfg.Bucket))
	return nil
}

// Close marks the client as closed. The underlying minio.Client has no
// persistent connection to release.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

var ErrClientClosed = errors.New(errors.CodeInternal, "restart store client is closed")

// HealthStatus reports the reachability of the restart bucket.
type HealthStatus struct {
	Healthy    bool
	Latency    time.Duration
	BucketName string
	Error      string
}

// HealthCheck verifies the MinIO endpoint is reachable and the restart
// bucket still exists.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	_, err := c.api.ListBuckets(ctx)
	latency := time.Since(start)

	status := &HealthStatus{Latency: latency, BucketName: c.cfg.Bucket}
	if err != nil {
		status.Error = err.Error()
		return status, err
	}

	exists, _ := c.api.BucketExists(ctx, c.cfg.Bucket)
	status.Healthy = exists
	if !exists {
		status.Error = fmt.Sprintf("bucket %s missing", c.cfg.Bucket)
	}
	return status, nil
}

var ErrRestartNotFound = errors.New(errors.CodeNotFound, "restart blob not found")

package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

// RestartStore persists and retrieves restart blobs for runs that span a
// cluster without a shared filesystem.
type RestartStore interface {
	// PutRestart uploads a restart blob for the given run and iteration,
	// returning the object key under which it was stored.
	PutRestart(ctx context.Context, runID string, iteration int64, data []byte) (string, error)
	// GetRestart downloads the restart blob at the given object key.
	GetRestart(ctx context.Context, objectKey string) ([]byte, error)
	// DeleteRestart removes a previously uploaded restart blob.
	DeleteRestart(ctx context.Context, objectKey string) error
	// ListRestarts returns metadata for every restart blob recorded for runID.
	ListRestarts(ctx context.Context, runID string) ([]RestartObject, error)
	// PresignedRestartURL returns a time-limited URL granting direct
	// download access to a restart blob, for clients that cannot talk to
	// MinIO directly (e.g. a worker fetching its restart over HTTP).
	PresignedRestartURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// RestartObject describes one restart blob stored in the bucket.
type RestartObject struct {
	ObjectKey    string
	Size         int64
	ETag         string
	LastModified time.Time
}

type restartStore struct {
	client *Client
	bucket string
	logger logging.Logger
}

// NewRestartStore builds a RestartStore backed by an already-connected
// Client.
func NewRestartStore(client *Client, logger logging.Logger) RestartStore {
	return &restartStore{client: client, bucket: client.cfg.Bucket, logger: logger}
}

func restartObjectKey(runID string, iteration int64) string {
	return fmt.Sprintf("restarts/%s/%d.restart", runID, iteration)
}

func (s *restartStore) PutRestart(ctx context.Context, runID string, iteration int64, data []byte) (string, error) {
	if runID == "" {
		return "", errors.New(errors.CodeInvalidParam, "run id required")
	}
	key := restartObjectKey(runID, iteration)

	_, err := s.client.api.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeStorageError, "put restart blob failed")
	}

	s.logger.Info("wrote restart blob",
		logging.String("run_id", runID),
		logging.Int64("iteration", iteration),
		logging.String("object_key", key),
	)
	return key, nil
}

func (s *restartStore) GetRestart(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := s.client.api.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "get restart blob failed")
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrRestartNotFound
		}
		return nil, errors.Wrap(err, errors.CodeStorageError, "stat restart blob failed")
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "read restart blob failed")
	}
	return data, nil
}

func (s *restartStore) DeleteRestart(ctx context.Context, objectKey string) error {
	if err := s.client.api.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "delete restart blob failed")
	}
	return nil
}

func (s *restartStore) ListRestarts(ctx context.Context, runID string) ([]RestartObject, error) {
	prefix := fmt.Sprintf("restarts/%s/", runID)

	var out []RestartObject
	for obj := range s.client.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.CodeStorageError, "list restart blobs failed")
		}
		out = append(out, RestartObject{
			ObjectKey:    obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

func (s *restartStore) PresignedRestartURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = s.client.cfg.PresignExpiry
	}
	u, err := s.client.api.PresignedGetObject(ctx, s.bucket, objectKey, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeStorageError, "presign restart blob failed")
	}
	return u.String(), nil
}

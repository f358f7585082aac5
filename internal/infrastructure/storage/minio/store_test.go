package minio

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dissolveproject/dissolve/internal/config"
	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
)

func newTestRestartStore(api *mockAPI) *restartStore {
	client := &Client{api: api, cfg: config.RestartStoreConfig{Bucket: "dissolve-restarts", PresignExpiry: time.Hour}}
	return &restartStore{client: client, bucket: client.cfg.Bucket, logger: logging.NewNopLogger()}
}

func TestRestartObjectKey(t *testing.T) {
	assert.Equal(t, "restarts/run-1/42.restart", restartObjectKey("run-1", 42))
}

func TestPutRestart_Success(t *testing.T) {
	api := new(mockAPI)
	store := newTestRestartStore(api)

	api.On("PutObject", mock.Anything, "dissolve-restarts", "restarts/run-1/10.restart", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{Bucket: "dissolve-restarts", Key: "restarts/run-1/10.restart"}, nil)

	key, err := store.PutRestart(context.Background(), "run-1", 10, []byte("checkpoint-bytes"))
	assert.NoError(t, err)
	assert.Equal(t, "restarts/run-1/10.restart", key)
}

func TestPutRestart_RequiresRunID(t *testing.T) {
	store := newTestRestartStore(new(mockAPI))
	_, err := store.PutRestart(context.Background(), "", 10, nil)
	assert.Error(t, err)
}

func TestDeleteRestart_Success(t *testing.T) {
	api := new(mockAPI)
	store := newTestRestartStore(api)

	api.On("RemoveObject", mock.Anything, "dissolve-restarts", "restarts/run-1/10.restart", mock.Anything).Return(nil)

	assert.NoError(t, store.DeleteRestart(context.Background(), "restarts/run-1/10.restart"))
}

func TestListRestarts_Success(t *testing.T) {
	api := new(mockAPI)
	store := newTestRestartStore(api)

	ch := make(chan minio.ObjectInfo, 2)
	ch <- minio.ObjectInfo{Key: "restarts/run-1/10.restart", Size: 100}
	ch <- minio.ObjectInfo{Key: "restarts/run-1/20.restart", Size: 200}
	close(ch)

	api.On("ListObjects", mock.Anything, "dissolve-restarts", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

	objs, err := store.ListRestarts(context.Background(), "run-1")
	assert.NoError(t, err)
	assert.Len(t, objs, 2)
	assert.Equal(t, "restarts/run-1/10.restart", objs[0].ObjectKey)
}

func TestPresignedRestartURL_UsesDefaultExpiry(t *testing.T) {
	api := new(mockAPI)
	store := newTestRestartStore(api)

	expected, _ := url.Parse("https://minio.example.com/dissolve-restarts/restarts/run-1/10.restart?signed=true")
	api.On("PresignedGetObject", mock.Anything, "dissolve-restarts", "restarts/run-1/10.restart", time.Hour, mock.Anything).
		Return(expected, nil)

	got, err := store.PresignedRestartURL(context.Background(), "restarts/run-1/10.restart", 0)
	assert.NoError(t, err)
	assert.Equal(t, expected.String(), got)
}

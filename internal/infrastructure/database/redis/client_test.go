package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dissolveproject/dissolve/internal/config"
	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
)

func TestNewClient_Success(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewClient(config.CacheConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.NotNil(t, client)

	assert.NoError(t, client.Ping(context.Background()))
	client.Close()
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(config.CacheConfig{Addr: "localhost:1"}, logging.NewNopLogger())
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestApplyDefaults_AllZeroValues(t *testing.T) {
	cfg := &config.CacheConfig{}
	applyDefaults(cfg)
	assert.Greater(t, cfg.PoolSize, 0)
	assert.Equal(t, 2, cfg.MinIdleConns)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "dissolve:", cfg.KeyPrefix)
	assert.Equal(t, 10*time.Minute, cfg.DefaultTTL)
}

func TestApplyDefaults_PartialConfig(t *testing.T) {
	cfg := &config.CacheConfig{MinIdleConns: 10, KeyPrefix: "run:"}
	applyDefaults(cfg)
	assert.Equal(t, 10, cfg.MinIdleConns)
	assert.Equal(t, "run:", cfg.KeyPrefix)
}

func TestClient_Operations(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewClient(config.CacheConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "key", "value", 0).Err())

	val, err := client.Get(ctx, "key").Result()
	assert.NoError(t, err)
	assert.Equal(t, "value", val)

	require.NoError(t, client.Del(ctx, "key").Err())

	client.Set(ctx, "counter", 10, 0)
	v, err := client.Incr(ctx, "counter").Result()
	assert.NoError(t, err)
	assert.Equal(t, int64(11), v)
}

func TestClient_Close(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewClient(config.CacheConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)

	assert.NoError(t, client.Close())

	err = client.Get(context.Background(), "key").Err()
	assert.Equal(t, ErrClientClosed, err)

	// Close is idempotent.
	assert.NoError(t, client.Close())
}

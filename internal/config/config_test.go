package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dissolveproject/dissolve/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Run: config.RunConfig{
			Cutoff: 15.0,
			Delta:  0.005,
		},
		GRPC: config.GRPCConfig{Port: 9090},
		HTTP: config.HTTPConfig{Port: 8080, Mode: "debug"},
		Pool: config.PoolConfig{Mode: "local"},
		Log:  config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestValidate_AcceptsMinimalLocalConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveCutoff(t *testing.T) {
	cfg := validConfig()
	cfg.Run.Cutoff = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveDelta(t *testing.T) {
	cfg := validConfig()
	cfg.Run.Delta = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeGRPCPort(t *testing.T) {
	cfg := validConfig()
	cfg.GRPC.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsInvalidHTTPMode(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Mode = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsInvalidPoolMode(t *testing.T) {
	cfg := validConfig()
	cfg.Pool.Mode = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresBrokersWhenKafkaDistributed(t *testing.T) {
	cfg := validConfig()
	cfg.Pool.Mode = "kafka-distributed"
	cfg.Pool.Brokers = nil
	assert.Error(t, cfg.Validate())

	cfg.Pool.Brokers = []string{"localhost:9092"}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsInvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsInvalidLogFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Format = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestRunConfig_CheckpointCadenceIsConfigurable(t *testing.T) {
	cfg := validConfig()
	cfg.Run.CheckpointEvery = 500
	cfg.Run.HeartbeatEvery = 5 * time.Second
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.Run.CheckpointEvery)
}

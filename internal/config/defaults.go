// Package config provides configuration loading, defaults, and validation
// for a Dissolve run.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultCutoff = 15.0
	DefaultDelta  = 0.005

	DefaultGRPCPort = 9090
	DefaultHTTPPort = 8080
	DefaultHTTPMode = "debug"

	DefaultCheckpointHost     = "localhost"
	DefaultCheckpointPort     = 5432
	DefaultCheckpointDBName   = "dissolve_checkpoints"
	DefaultCheckpointMaxConns = 10

	DefaultCacheAddr = "localhost:6379"

	DefaultPoolBroker  = "localhost:9092"
	DefaultPoolGroupID = "dissolve-pool"

	DefaultRestartEndpoint = "localhost:9000"
	DefaultRestartBucket   = "dissolve-restarts"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the platform
// default. Fields that have already been set by the caller (non-zero
// values) are left unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	if cfg.Run.Cutoff == 0 {
		cfg.Run.Cutoff = DefaultCutoff
	}
	if cfg.Run.Delta == 0 {
		cfg.Run.Delta = DefaultDelta
	}
	if cfg.Run.CheckpointEvery == 0 {
		cfg.Run.CheckpointEvery = 1000
	}
	if cfg.Run.HeartbeatEvery == 0 {
		cfg.Run.HeartbeatEvery = 10 * time.Second
	}

	// ── GRPC / HTTP ───────────────────────────────────────────────────────────
	if cfg.GRPC.Port == 0 {
		cfg.GRPC.Port = DefaultGRPCPort
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = DefaultHTTPPort
	}
	if cfg.HTTP.Mode == "" {
		cfg.HTTP.Mode = DefaultHTTPMode
	}

	// ── Checkpoint catalog ────────────────────────────────────────────────────
	if cfg.Checkpoint.Host == "" {
		cfg.Checkpoint.Host = DefaultCheckpointHost
	}
	if cfg.Checkpoint.Port == 0 {
		cfg.Checkpoint.Port = DefaultCheckpointPort
	}
	if cfg.Checkpoint.DBName == "" {
		cfg.Checkpoint.DBName = DefaultCheckpointDBName
	}
	if cfg.Checkpoint.MaxConns == 0 {
		cfg.Checkpoint.MaxConns = DefaultCheckpointMaxConns
	}
	if cfg.Checkpoint.SSLMode == "" {
		cfg.Checkpoint.SSLMode = "disable"
	}

	// ── Fast cache ────────────────────────────────────────────────────────────
	if cfg.Cache.Addr == "" {
		cfg.Cache.Addr = DefaultCacheAddr
	}

	// ── Distributed pool backend ─────────────────────────────────────────────
	if len(cfg.Pool.Brokers) == 0 {
		cfg.Pool.Brokers = []string{DefaultPoolBroker}
	}
	if cfg.Pool.GroupID == "" {
		cfg.Pool.GroupID = DefaultPoolGroupID
	}
	if cfg.Pool.AutoOffsetReset == "" {
		cfg.Pool.AutoOffsetReset = "earliest"
	}
	if cfg.Pool.Mode == "" {
		cfg.Pool.Mode = "local"
	}

	// ── Restart object store ─────────────────────────────────────────────────
	if cfg.Restart.Endpoint == "" {
		cfg.Restart.Endpoint = DefaultRestartEndpoint
	}
	if cfg.Restart.Bucket == "" {
		cfg.Restart.Bucket = DefaultRestartBucket
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// Package config defines every configuration structure read by a Dissolve
// run: the service-level YAML (distinct from the physics input deck itself),
// environment overrides, and the connection parameters for each optional
// persistence/coordination backend (C13). No I/O or parsing logic lives
// here — only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// RunConfig holds the tunables of a simulation run that are operational
// rather than physical: they govern how the run executes, not what it
// simulates (box, species, forcefield live in the input deck itself).
type RunConfig struct {
	InputDeck      string        `mapstructure:"input_deck"`
	RestartPath    string        `mapstructure:"restart_path"`
	PairPotentials string        `mapstructure:"pair_potentials"` // hot-reloadable tabulated-potential file
	Cutoff         float64       `mapstructure:"cutoff"`
	Delta          float64       `mapstructure:"delta"`
	CheckpointEvery int          `mapstructure:"checkpoint_every"`
	HeartbeatEvery time.Duration `mapstructure:"heartbeat_every"`
}

// GRPCConfig holds gRPC status-service (C21) transport tunables.
type GRPCConfig struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"` // registers server reflection when true
}

// HTTPConfig holds HTTP status-service (C21) transport tunables.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CheckpointConfig holds PostgreSQL connection parameters for the checkpoint
// catalog (C15): the index of restart checkpoints, not the checkpoint blobs
// themselves.
type CheckpointConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// TopologyConfig holds Neo4j connection parameters for the topology store
// (C18): a read/write mirror of Species bonded topology for offline
// inspection tooling.
type TopologyConfig struct {
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
	Database              string        `mapstructure:"database"`
}

// CacheConfig holds Redis connection parameters for the fast cache (C19):
// an accelerator for GenericList items and collective-equality digests,
// never the source of truth.
type CacheConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// PoolConfig holds Kafka connection parameters for the distributed
// ProcessPool backend (C16): coordinating ranks that are separate OS
// processes/containers rather than MPI ranks in one job.
type PoolConfig struct {
	Mode              string   `mapstructure:"mode"` // "local" | "kafka-distributed"
	Brokers           []string `mapstructure:"brokers"`
	GroupID           string   `mapstructure:"group_id"`
	AutoOffsetReset   string   `mapstructure:"auto_offset_reset"`
	ProducerRetries   int      `mapstructure:"producer_retries"`
	BatchSize         int      `mapstructure:"batch_size"`
	AutoCreateTopics  bool     `mapstructure:"auto_create_topics"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
	NumPartitions     int      `mapstructure:"num_partitions"`
}

// RunLogConfig holds OpenSearch connection parameters for the run log index
// (C20): a searchable index of Messenger output lines for post-mortem
// debugging across a multi-rank run.
type RunLogConfig struct {
	Addresses          []string `mapstructure:"addresses"`
	User               string   `mapstructure:"user"`
	Password           string   `mapstructure:"password"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify"`
	BulkBatchSize      int      `mapstructure:"bulk_batch_size"`
	IndexPrefix        string   `mapstructure:"index_prefix"`
}

// RestartStoreConfig holds MinIO/S3 connection parameters for the restart
// object store (C17): used when running in a cluster without a shared
// filesystem to hold <input>.restart blobs.
type RestartStoreConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// MetricsConfig holds Prometheus metrics parameters (C14).
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

// LogConfig holds Messenger structured-logging parameters (C12).
type LogConfig struct {
	Level            string `mapstructure:"level"` // "debug" | "info" | "warn" | "error"
	Format           string `mapstructure:"format"` // "json" | "text"
	Output           string `mapstructure:"output"`
	EnableCaller     bool   `mapstructure:"enable_caller"`
	EnableStacktrace bool   `mapstructure:"enable_stacktrace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root service configuration for a Dissolve run. Every
// optional backend (C15-C20) and ambient component (C12-C14, C21) reads its
// settings from the relevant sub-struct; none are required to run a purely
// local, single-process simulation.
type Config struct {
	Run        RunConfig          `mapstructure:"run"`
	GRPC       GRPCConfig         `mapstructure:"grpc"`
	HTTP       HTTPConfig         `mapstructure:"http"`
	Checkpoint CheckpointConfig   `mapstructure:"checkpoint"`
	Topology   TopologyConfig     `mapstructure:"topology"`
	Cache      CacheConfig        `mapstructure:"cache"`
	Pool       PoolConfig         `mapstructure:"pool"`
	RunLog     RunLogConfig       `mapstructure:"run_log"`
	Restart    RestartStoreConfig `mapstructure:"restart"`
	Metrics    MetricsConfig      `mapstructure:"metrics"`
	Log        LogConfig          `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	if c.Run.Cutoff <= 0 {
		return fmt.Errorf("config: run.cutoff must be > 0, got %v", c.Run.Cutoff)
	}
	if c.Run.Delta <= 0 {
		return fmt.Errorf("config: run.delta must be > 0, got %v", c.Run.Delta)
	}

	if c.GRPC.Port < 0 || c.GRPC.Port > 65535 {
		return fmt.Errorf("config: grpc.port %d is out of range [0, 65535]", c.GRPC.Port)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: http.port %d is out of range [0, 65535]", c.HTTP.Port)
	}
	switch c.HTTP.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("config: http.mode %q is invalid; expected debug|release|test", c.HTTP.Mode)
	}

	switch c.Pool.Mode {
	case "", "local", "kafka-distributed":
	default:
		return fmt.Errorf("config: pool.mode %q is invalid; expected local|kafka-distributed", c.Pool.Mode)
	}
	if c.Pool.Mode == "kafka-distributed" && len(c.Pool.Brokers) == 0 {
		return fmt.Errorf("config: pool.brokers must contain at least one broker address when pool.mode is kafka-distributed")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|text", c.Log.Format)
	}

	return nil
}

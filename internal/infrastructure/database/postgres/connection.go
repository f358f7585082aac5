// Package postgres implements the checkpoint catalog (C15): a Postgres-backed
// index of restart checkpoints (run id, iteration, content hash), kept
// separate from the restart file blob itself (see the minio-backed restart
// object store, C17). The connection pool is created once at startup and
// shared by every catalog call.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dissolveproject/dissolve/internal/config"
	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
)

const (
	// maxRetries is the maximum number of connection attempts before giving up.
	maxRetries = 5

	// initialRetryDelay is the starting delay between retry attempts.
	// Subsequent attempts use exponential backoff: 1s, 2s, 4s, 8s.
	initialRetryDelay = 1 * time.Second

	defaultMaxConns          = 25
	defaultMinConns          = 5
	defaultMaxConnLifetime   = 1 * time.Hour
	defaultMaxConnIdleTime   = 30 * time.Minute
	defaultHealthCheckPeriod = 1 * time.Minute
)

// Checkpoint is one row of the catalog: a pointer to a restart blob stored
// elsewhere (the object store of C17, or a local filesystem path), indexed
// by run and iteration so a run can be resumed from its latest point.
type Checkpoint struct {
	RunID       string
	Iteration   int64
	ContentHash string
	Location    string
	CreatedAt   time.Time
}

// Catalog is the checkpoint catalog backed by a pgx connection pool.
type Catalog struct {
	pool *pgxpool.Pool
}

// NewCatalog creates and initializes a Catalog backed by a pgxpool.Pool with
// exponential backoff retry logic. The pool is ready to use upon successful
// return and must be closed by the caller via Close() at shutdown.
func NewCatalog(cfg config.CheckpointConfig, logger logging.Logger) (*Catalog, error) {
	connString := buildConnString(cfg)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	configurePool(poolConfig, cfg)

	var pool *pgxpool.Pool
	retryDelay := initialRetryDelay

	for attempt := 1; attempt <= maxRetries; attempt++ {
		logger.Info("attempting checkpoint catalog connection",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", maxRetries),
			logging.String("host", cfg.Host),
			logging.Int("port", cfg.Port),
			logging.String("db_name", cfg.DBName),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		cancel()

		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = pool.Ping(pingCtx)
			pingCancel()

			if err == nil {
				logger.Info("checkpoint catalog connection established",
					logging.String("host", cfg.Host),
					logging.Int("port", cfg.Port),
					logging.String("db_name", cfg.DBName),
				)
				return &Catalog{pool: pool}, nil
			}

			pool.Close()
			logger.Warn("checkpoint catalog ping failed", logging.Int("attempt", attempt), logging.Err(err))
		} else {
			logger.Warn("failed to create checkpoint catalog pool", logging.Int("attempt", attempt), logging.Err(err))
		}

		if attempt == maxRetries {
			return nil, fmt.Errorf("failed to connect to checkpoint catalog after %d attempts: %w", maxRetries, err)
		}

		time.Sleep(retryDelay)
		retryDelay *= 2
	}

	return nil, fmt.Errorf("connection retry logic exhausted")
}

// Close gracefully shuts down the connection pool. The catalog must not be
// used after calling Close.
func (c *Catalog) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// HealthCheck executes a lightweight query to verify the catalog is reachable.
func (c *Catalog) HealthCheck(ctx context.Context) error {
	if c.pool == nil {
		return fmt.Errorf("checkpoint catalog pool is nil")
	}
	var result int
	if err := c.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("health check returned unexpected value: %d", result)
	}
	return nil
}

// RecordCheckpoint inserts a catalog row for a newly written restart blob.
func (c *Catalog) RecordCheckpoint(ctx context.Context, cp Checkpoint) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO checkpoints (run_id, iteration, content_hash, location, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, cp.RunID, cp.Iteration, cp.ContentHash, cp.Location, cp.CreatedAt)
	if err != nil {
		return fmt.Errorf("record checkpoint: %w", err)
	}
	return nil
}

// LatestCheckpoint returns the most recent checkpoint recorded for runID, or
// ErrNoRows (via pgx.ErrNoRows) if the run has none.
func (c *Catalog) LatestCheckpoint(ctx context.Context, runID string) (Checkpoint, error) {
	var cp Checkpoint
	cp.RunID = runID
	row := c.pool.QueryRow(ctx, `
		SELECT iteration, content_hash, location, created_at
		FROM checkpoints
		WHERE run_id = $1
		ORDER BY iteration DESC
		LIMIT 1
	`, runID)
	if err := row.Scan(&cp.Iteration, &cp.ContentHash, &cp.Location, &cp.CreatedAt); err != nil {
		return Checkpoint{}, fmt.Errorf("latest checkpoint for run %q: %w", runID, err)
	}
	return cp, nil
}

// ListCheckpoints returns every checkpoint recorded for runID, oldest first.
func (c *Catalog) ListCheckpoints(ctx context.Context, runID string) ([]Checkpoint, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT iteration, content_hash, location, created_at
		FROM checkpoints
		WHERE run_id = $1
		ORDER BY iteration ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints for run %q: %w", runID, err)
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		cp := Checkpoint{RunID: runID}
		if err := rows.Scan(&cp.Iteration, &cp.ContentHash, &cp.Location, &cp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func buildConnString(cfg config.CheckpointConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode,
	)
}

func configurePool(poolConfig *pgxpool.Config, cfg config.CheckpointConfig) {
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	} else {
		poolConfig.MaxConns = defaultMaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	} else {
		poolConfig.MinConns = defaultMinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	} else {
		poolConfig.MaxConnLifetime = defaultMaxConnLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	} else {
		poolConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	}
	poolConfig.HealthCheckPeriod = defaultHealthCheckPeriod
}

// WithTransaction executes fn within a database transaction, committing on
// success and rolling back on error or panic.
func WithTransaction(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) (err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				err = fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
			}
		} else if cmtErr := tx.Commit(ctx); cmtErr != nil {
			err = fmt.Errorf("commit failed: %w", cmtErr)
		}
	}()

	err = fn(tx)
	return err
}

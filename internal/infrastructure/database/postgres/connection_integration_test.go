//go:build integration

// Package postgres_test provides integration tests for the checkpoint
// catalog that require a running PostgreSQL instance.
package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dissolveproject/dissolve/internal/config"
	"github.com/dissolveproject/dissolve/internal/infrastructure/database/postgres"
	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
)

func setupTestCatalog(t *testing.T) (*postgres.Catalog, func()) {
	t.Helper()

	dbURL := os.Getenv("INTEGRATION_TEST_DB_URL")
	if dbURL == "" {
		t.Skip("INTEGRATION_TEST_DB_URL not set; skipping integration test")
	}

	cfg := config.CheckpointConfig{
		Host: "localhost", Port: 5432,
		User: "test", Password: "test",
		DBName: "test_dissolve", SSLMode: "disable",
	}

	catalog, err := postgres.NewCatalog(cfg, logging.NewNopLogger())
	require.NoError(t, err)

	return catalog, catalog.Close
}

func TestCatalog_RecordAndRetrieveLatestCheckpoint(t *testing.T) {
	catalog, cleanup := setupTestCatalog(t)
	defer cleanup()

	ctx := context.Background()
	runID := "run-integration-1"

	require.NoError(t, catalog.RecordCheckpoint(ctx, postgres.Checkpoint{
		RunID: runID, Iteration: 100, ContentHash: "abc123",
		Location: "restarts/run-integration-1/100.restart", CreatedAt: time.Now(),
	}))
	require.NoError(t, catalog.RecordCheckpoint(ctx, postgres.Checkpoint{
		RunID: runID, Iteration: 200, ContentHash: "def456",
		Location: "restarts/run-integration-1/200.restart", CreatedAt: time.Now(),
	}))

	latest, err := catalog.LatestCheckpoint(ctx, runID)
	require.NoError(t, err)
	assert.EqualValues(t, 200, latest.Iteration)

	all, err := catalog.ListCheckpoints(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCatalog_HealthCheck(t *testing.T) {
	catalog, cleanup := setupTestCatalog(t)
	defer cleanup()

	assert.NoError(t, catalog.HealthCheck(context.Background()))
}

package grpc

import (
	"context"

	"github.com/dissolveproject/dissolve/internal/infrastructure/database/postgres"
)

// CatalogStatusProvider adapts the checkpoint catalog (C15) into a
// StatusProvider: a run's most recent checkpoint stands in for its current
// status, since the catalog is the only durable record of run progress this
// repository keeps.
type CatalogStatusProvider struct {
	catalog *postgres.Catalog
}

// NewCatalogStatusProvider wraps catalog as a StatusProvider.
func NewCatalogStatusProvider(catalog *postgres.Catalog) *CatalogStatusProvider {
	return &CatalogStatusProvider{catalog: catalog}
}

// RunStatus reports the latest checkpoint recorded for runID as that run's
// current status.
func (p *CatalogStatusProvider) RunStatus(ctx context.Context, runID string) (RunStatus, error) {
	cp, err := p.catalog.LatestCheckpoint(ctx, runID)
	if err != nil {
		return RunStatus{}, err
	}
	return RunStatus{
		RunID:     cp.RunID,
		Iteration: cp.Iteration,
		Location:  cp.Location,
		UpdatedAt: cp.CreatedAt,
	}, nil
}

// ListCheckpoints returns every checkpoint catalogued for runID.
func (p *CatalogStatusProvider) ListCheckpoints(ctx context.Context, runID string) ([]CheckpointSummary, error) {
	checkpoints, err := p.catalog.ListCheckpoints(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]CheckpointSummary, len(checkpoints))
	for i, cp := range checkpoints {
		out[i] = CheckpointSummary{
			RunID:     cp.RunID,
			Iteration: cp.Iteration,
			Location:  cp.Location,
			CreatedAt: cp.CreatedAt,
		}
	}
	return out, nil
}

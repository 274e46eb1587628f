package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

type RunRepository struct {
	client *backend.Client
	keys   keys
}

func (r *RunRepository) ListByWorkflow(ctx context.Context, tenantID, workflowID string, limit int) ([]*models.WorkflowRun, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := r.client.ZRevRange(ctx, r.keys.workflowRuns(tenantID, workflowID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs of workflow %s: %w", workflowID, err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.keys.run(tenantID, id))
	}

	return loadMany[models.WorkflowRun](ctx, r.client, keys)
}

func (r *RunRepository) Save(ctx context.Context, run *models.WorkflowRun) error {
	if run.TenantID == "" || run.WorkflowID == "" {
		return fmt.Errorf("%w: run needs tenant and workflow", persistence.ErrMissingIdentifier)
	}

	err := persistence.EnsureID(&run.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow run: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.keys.run(run.TenantID, run.ID), data, 0)
	pipe.ZAdd(ctx, r.keys.workflowRuns(run.TenantID, run.WorkflowID), backend.Z{
		Score:  score(run.StartedAt),
		Member: run.ID,
	})

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save workflow run: %w", err)
	}

	return nil
}

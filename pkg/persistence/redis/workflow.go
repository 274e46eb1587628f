package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

// WorkflowRepository keeps one sorted set of every workflow per tenant and one of the
// active workflows per (tenant, trigger event), both scored by created_at.
type WorkflowRepository struct {
	client *backend.Client
	keys   keys
}

func (r *WorkflowRepository) GetAll(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	return r.fromIndex(ctx, "GetAll", tenantID, r.keys.workflowIndex(tenantID))
}

func (r *WorkflowRepository) ActiveByTrigger(ctx context.Context, tenantID, triggerEvent string) ([]*models.Workflow, error) {
	return r.fromIndex(ctx, "ActiveByTrigger", tenantID, r.keys.triggerIndex(tenantID, triggerEvent))
}

func (r *WorkflowRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := load(ctx, r.client, r.keys.workflow(tenantID, id), &workflow)
	if err != nil {
		if isNil(err) {
			return nil, persistence.NewWorkflowError("GetByID", tenantID, id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", tenantID, id, err)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	err := persistence.EnsureID(&workflow.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	previous, err := r.GetByID(ctx, workflow.TenantID, workflow.ID)
	if err != nil && !persistence.IsWorkflowNotFound(err) {
		return err
	}

	data, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	member := backend.Z{Score: score(workflow.CreatedAt), Member: workflow.ID}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.keys.workflow(workflow.TenantID, workflow.ID), data, 0)
	pipe.ZAdd(ctx, r.keys.workflowIndex(workflow.TenantID), member)

	if previous != nil {
		pipe.ZRem(ctx, r.keys.triggerIndex(previous.TenantID, previous.TriggerEvent), workflow.ID)
	}

	if workflow.IsActive {
		pipe.ZAdd(ctx, r.keys.triggerIndex(workflow.TenantID, workflow.TriggerEvent), member)
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.TenantID, workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, tenantID, id string) error {
	workflow, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", tenantID, id, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.keys.workflow(tenantID, id))
	pipe.ZRem(ctx, r.keys.workflowIndex(tenantID), id)
	pipe.ZRem(ctx, r.keys.triggerIndex(tenantID, workflow.TriggerEvent), id)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return persistence.NewWorkflowError("Delete", tenantID, id, err)
	}

	return nil
}

func (r *WorkflowRepository) fromIndex(ctx context.Context, op, tenantID, index string) ([]*models.Workflow, error) {
	ids, err := r.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, persistence.NewWorkflowError(op, tenantID, "", err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.keys.workflow(tenantID, id))
	}

	workflows, err := loadMany[models.Workflow](ctx, r.client, keys)
	if err != nil {
		return nil, persistence.NewWorkflowError(op, tenantID, "", err)
	}

	return workflows, nil
}

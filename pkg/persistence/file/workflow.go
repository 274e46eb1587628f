package file

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// WorkflowRepository stores workflows under workflows/<tenant>/<id>.json.
type WorkflowRepository struct {
	store *store
}

func (wr *WorkflowRepository) GetAll(_ context.Context, tenantID string) ([]*models.Workflow, error) {
	workflows, err := readAll[models.Workflow](wr.store, "workflows", tenantID)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetAll", tenantID, "", err)
	}

	persistence.SortWorkflows(workflows)

	return workflows, nil
}

func (wr *WorkflowRepository) GetByID(_ context.Context, tenantID, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := wr.store.read(&workflow, "workflows", tenantID, id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewWorkflowError("GetByID", tenantID, id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", tenantID, id, err)
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) ActiveByTrigger(ctx context.Context, tenantID, triggerEvent string) ([]*models.Workflow, error) {
	workflows, err := wr.GetAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if workflow.IsActive && workflow.TriggerEvent == triggerEvent {
			active = append(active, workflow)
		}
	}

	return active, nil
}

func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	err := persistence.EnsureID(&workflow.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	err = wr.store.write(workflow, "workflows", workflow.TenantID, workflow.ID)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.TenantID, workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(_ context.Context, tenantID, id string) error {
	err := wr.store.remove("workflows", tenantID, id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewWorkflowError("Delete", tenantID, id, persistence.ErrWorkflowNotFound)
		}

		return persistence.NewWorkflowError("Delete", tenantID, id, err)
	}

	return nil
}

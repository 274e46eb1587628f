package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

const workflowColumns = `
			id
		  , tenant_id
		  , name
		  , description
		  , trigger_event
		  , conditions
		  , actions
		  , is_active
		  , COALESCE(owner, '')
		  , created_at
		  , updated_at`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// GetAll returns every workflow of a tenant.
func (r *WorkflowRepository) GetAll(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE tenant_id = $1
		ORDER BY created_at ASC, id ASC
	`

	workflows, err := r.query(ctx, query, tenantID)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetAll", tenantID, "", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) ActiveByTrigger(ctx context.Context, tenantID, triggerEvent string) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE tenant_id = $1 AND trigger_event = $2 AND is_active
		ORDER BY created_at ASC, id ASC
	`

	workflows, err := r.query(ctx, query, tenantID, triggerEvent)
	if err != nil {
		return nil, persistence.NewWorkflowError("ActiveByTrigger", tenantID, "", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE tenant_id = $1 AND id = $2
	`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", tenantID, id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", tenantID, id, err)
	}

	return workflow, nil
}

// Save inserts or updates a workflow.
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

	conditionsJSON, err := json.Marshal(nonNil(workflow.Conditions))
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	actionsJSON, err := json.Marshal(nonNil(workflow.Actions))
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		INSERT INTO workflows (id, tenant_id, name, description, trigger_event,
conditions, actions, is_active, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_event = EXCLUDED.trigger_event,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			is_active = EXCLUDED.is_active,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.TenantID,
		workflow.Name,
		workflow.Description,
		workflow.TriggerEvent,
		conditionsJSON,
		actionsJSON,
		workflow.IsActive,
		workflow.Owner,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.TenantID, workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE tenant_id = $1 AND id = $2", tenantID, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", tenantID, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", tenantID, id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", tenantID, id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow       models.Workflow
		conditionsJSON []byte
		actionsJSON    []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.TenantID,
		&workflow.Name,
		&workflow.Description,
		&workflow.TriggerEvent,
		&conditionsJSON,
		&actionsJSON,
		&workflow.IsActive,
		&workflow.Owner,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers match sql.ErrNoRows
	}

	err = json.Unmarshal(conditionsJSON, &workflow.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}

	err = json.Unmarshal(actionsJSON, &workflow.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	return &workflow, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}

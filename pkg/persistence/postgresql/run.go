package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// RunRepository stores the audit trail of workflow evaluations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *RunRepository) ListByWorkflow(ctx context.Context, tenantID, workflowID string, limit int) ([]*models.WorkflowRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, tenant_id, workflow_id, trigger_event, entity_type, entity_id, status, error, actions, started_at, finished_at
		FROM workflow_runs
		WHERE tenant_id = $1 AND workflow_id = $2
		ORDER BY started_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow runs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		var (
			run         models.WorkflowRun
			actionsJSON []byte
		)

		err := rows.Scan(
			&run.ID,
			&run.TenantID,
			&run.WorkflowID,
			&run.TriggerEvent,
			&run.EntityType,
			&run.EntityID,
			&run.Status,
			&run.Error,
			&actionsJSON,
			&run.StartedAt,
			&run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow run: %w", err)
		}

		err = json.Unmarshal(actionsJSON, &run.Actions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal action results: %w", err)
		}

		runs = append(runs, &run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) Save(ctx context.Context, run *models.WorkflowRun) error {
	if run.TenantID == "" || run.WorkflowID == "" {
		return fmt.Errorf("%w: run needs tenant and workflow", persistence.ErrMissingIdentifier)
	}

	err := persistence.EnsureID(&run.ID)
	if err != nil {
		return err
	}

	actionsJSON, err := json.Marshal(nonNil(run.Actions))
	if err != nil {
		return fmt.Errorf("failed to marshal action results: %w", err)
	}

	query := `
		INSERT INTO workflow_runs (id, tenant_id, workflow_id, trigger_event, entity_type, entity_id,
status, error, actions, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.TenantID,
		run.WorkflowID,
		run.TriggerEvent,
		run.EntityType,
		run.EntityID,
		run.Status,
		run.Error,
		actionsJSON,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow run: %w", err)
	}

	return nil
}

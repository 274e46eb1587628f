package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

const taskColumns = `
			id
		  , tenant_id
		  , subject
		  , description
		  , status
		  , due_at
		  , assigned_to
		  , entity_type
		  , entity_id
		  , workflow_id
		  , created_by
		  , overdue_notified_at
		  , created_at
		  , updated_at`

// TaskRepository handles task-related database operations.
type TaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *TaskRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE tenant_id = $1 AND id = $2`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrTaskNotFound, id)
		}

		return nil, fmt.Errorf("failed to query task %s: %w", id, err)
	}

	return task, nil
}

func (r *TaskRepository) ListByEntity(ctx context.Context, ref models.EntityRef) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at ASC, id ASC
	`

	return r.query(ctx, query, ref.TenantID, ref.Type, ref.ID)
}

func (r *TaskRepository) ListOverdue(ctx context.Context, now time.Time) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = 'open' AND overdue_notified_at IS NULL AND due_at < $1
		ORDER BY created_at ASC, id ASC
	`

	return r.query(ctx, query, now)
}

func (r *TaskRepository) Save(ctx context.Context, task *models.Task) error {
	if task.TenantID == "" {
		return fmt.Errorf("%w: task needs a tenant", persistence.ErrMissingIdentifier)
	}

	err := persistence.EnsureID(&task.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}

	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}

	query := `
		INSERT INTO tasks (id, tenant_id, subject, description, status, due_at, assigned_to,
entity_type, entity_id, workflow_id, created_by, overdue_notified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			subject = EXCLUDED.subject,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			due_at = EXCLUDED.due_at,
			assigned_to = EXCLUDED.assigned_to,
			overdue_notified_at = EXCLUDED.overdue_notified_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		task.ID,
		task.TenantID,
		task.Subject,
		task.Description,
		task.Status,
		task.DueAt,
		task.AssignedTo,
		task.EntityType,
		task.EntityID,
		task.WorkflowID,
		task.CreatedBy,
		task.OverdueNotifiedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.ID, err)
	}

	return nil
}

func (r *TaskRepository) query(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	tasks := make([]*models.Task, 0)

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

func scanTask(row scanner) (*models.Task, error) {
	var (
		task              models.Task
		dueAt             sql.NullTime
		overdueNotifiedAt sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.TenantID,
		&task.Subject,
		&task.Description,
		&task.Status,
		&dueAt,
		&task.AssignedTo,
		&task.EntityType,
		&task.EntityID,
		&task.WorkflowID,
		&task.CreatedBy,
		&overdueNotifiedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers match sql.ErrNoRows
	}

	if dueAt.Valid {
		task.DueAt = &dueAt.Time
	}

	if overdueNotifiedAt.Valid {
		task.OverdueNotifiedAt = &overdueNotifiedAt.Time
	}

	return &task, nil
}

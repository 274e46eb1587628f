// Package persistence provides the storage abstraction for workflows, CRM records and
// the side effects workflows produce (tasks, notifications and run audits).
package persistence

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/google/uuid"
)

type Persistence interface {
	Workflows() WorkflowRepository
	Records() RecordRepository
	Tasks() TaskRepository
	Notifications() NotificationRepository
	Runs() RunRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type WorkflowRepository interface {
	GetAll(ctx context.Context, tenantID string) ([]*models.Workflow, error)
	GetByID(ctx context.Context, tenantID, id string) (*models.Workflow, error)
	// ActiveByTrigger returns the active workflows of a tenant bound to the trigger
	// event, ordered by created_at then id.
	ActiveByTrigger(ctx context.Context, tenantID, triggerEvent string) ([]*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, tenantID, id string) error
}

type RecordRepository interface {
	Get(ctx context.Context, ref models.EntityRef) (*models.Record, error)
	Save(ctx context.Context, record *models.Record) error
}

type TaskRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.Task, error)
	ListByEntity(ctx context.Context, ref models.EntityRef) ([]*models.Task, error)
	// ListOverdue returns open tasks of every tenant due before now that were never reported as overdue.
	ListOverdue(ctx context.Context, now time.Time) ([]*models.Task, error)
	Save(ctx context.Context, task *models.Task) error
}

type NotificationRepository interface {
	ListByEntity(ctx context.Context, ref models.EntityRef) ([]*models.Notification, error)
	Save(ctx context.Context, notification *models.Notification) error
}

type RunRepository interface {
	// ListByWorkflow returns the most recent runs first.
	ListByWorkflow(ctx context.Context, tenantID, workflowID string, limit int) ([]*models.WorkflowRun, error)
	Save(ctx context.Context, run *models.WorkflowRun) error
}

// SortWorkflows orders workflows by created_at then id.
func SortWorkflows(workflows []*models.Workflow) {
	slices.SortStableFunc(workflows, func(a, b *models.Workflow) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
}

// EnsureID assigns a time ordered UUID to an empty identifier.
func EnsureID(id *string) error {
	if *id != "" {
		return nil
	}

	generated, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate ID: %w", err)
	}

	*id = generated.String()

	return nil
}

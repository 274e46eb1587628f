package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// Tasks stores the tasks workflows create and reports the ones that become overdue.
type Tasks struct {
	persistence persistence.Persistence
	entities    *Entities
	logger      *slog.Logger
	now         func() time.Time
}

func NewTasks(persistence persistence.Persistence, entities *Entities, logger *slog.Logger) *Tasks {
	return &Tasks{
		persistence: persistence,
		entities:    entities,
		logger:      logger.With("module", "task_service"),
		now:         time.Now,
	}
}

// CreateTask stores the task and announces "task.created".
func (s *Tasks) CreateTask(ctx context.Context, task *models.Task) error {
	if task.TenantID == "" {
		return ErrTenantRequired
	}

	if task.Status == "" {
		task.Status = models.TaskStatusOpen
	}

	err := s.persistence.Tasks().Save(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	s.entities.Announce(ctx, task.Ref().Event(VerbCreated), task)

	return nil
}

func (s *Tasks) FetchByID(ctx context.Context, tenantID, id string) (*models.Task, error) {
	task, err := s.persistence.Tasks().GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}

	return task, nil
}

func (s *Tasks) ListByEntity(ctx context.Context, ref models.EntityRef) ([]*models.Task, error) {
	tasks, err := s.persistence.Tasks().ListByEntity(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// Complete closes an open task and announces "task.updated".
func (s *Tasks) Complete(ctx context.Context, tenantID, id string) (*models.Task, error) {
	task, err := s.FetchByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskStatusCompleted {
		return nil, ErrTaskAlreadyCompleted
	}

	task.Status = models.TaskStatusCompleted
	task.UpdatedAt = s.now().UTC()

	err = s.persistence.Tasks().Save(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	s.entities.Announce(ctx, task.Ref().Event(VerbUpdated), task)

	return task, nil
}

// FireOverdue announces "task.overdue" once for every open task past its due date.
// The task is marked before the announcement so a failing workflow never causes a second report.
func (s *Tasks) FireOverdue(ctx context.Context) (int, error) {
	now := s.now().UTC()

	tasks, err := s.persistence.Tasks().ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue tasks: %w", err)
	}

	fired := 0

	for _, task := range tasks {
		task.OverdueNotifiedAt = &now
		task.UpdatedAt = now

		err := s.persistence.Tasks().Save(ctx, task)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to mark task as overdue", "task_id", task.ID, "error", err)

			continue
		}

		s.entities.Announce(ctx, task.Ref().Event(VerbOverdue), task)

		fired++
	}

	if fired > 0 {
		s.logger.InfoContext(ctx, "Overdue tasks announced", "count", fired)
	}

	return fired, nil
}

package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// TaskRepository stores tasks under tasks/<tenant>/<id>.json.
type TaskRepository struct {
	store *store
}

func (tr *TaskRepository) GetByID(_ context.Context, tenantID, id string) (*models.Task, error) {
	var task models.Task

	err := tr.store.read(&task, "tasks", tenantID, id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrTaskNotFound, id)
		}

		return nil, fmt.Errorf("failed to read task %s: %w", id, err)
	}

	return &task, nil
}

func (tr *TaskRepository) ListByEntity(_ context.Context, ref models.EntityRef) ([]*models.Task, error) {
	tasks, err := readAll[models.Task](tr.store, "tasks", ref.TenantID)
	if err != nil {
		return nil, err
	}

	tasks = slices.DeleteFunc(tasks, func(task *models.Task) bool {
		return task.EntityType != ref.Type || task.EntityID != ref.ID
	})

	sortTasks(tasks)

	return tasks, nil
}

func (tr *TaskRepository) ListOverdue(_ context.Context, now time.Time) ([]*models.Task, error) {
	tenants, err := tr.store.dirs("tasks")
	if err != nil {
		return nil, err
	}

	overdue := make([]*models.Task, 0)

	for _, tenantID := range tenants {
		tasks, err := readAll[models.Task](tr.store, "tasks", tenantID)
		if err != nil {
			return nil, err
		}

		for _, task := range tasks {
			if task.IsOverdue(now) && task.OverdueNotifiedAt == nil {
				overdue = append(overdue, task)
			}
		}
	}

	sortTasks(overdue)

	return overdue, nil
}

func (tr *TaskRepository) Save(_ context.Context, task *models.Task) error {
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

	return tr.store.write(task, "tasks", task.TenantID, task.ID)
}

func sortTasks(tasks []*models.Task) {
	slices.SortStableFunc(tasks, func(a, b *models.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		if a.ID < b.ID {
			return -1
		}

		if a.ID > b.ID {
			return 1
		}

		return 0
	})
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

type TaskRepository struct {
	client *backend.Client
	keys   keys
	logger *slog.Logger
}

func (r *TaskRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Task, error) {
	var task models.Task

	err := load(ctx, r.client, r.keys.task(tenantID, id), &task)
	if err != nil {
		if isNil(err) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrTaskNotFound, id)
		}

		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}

	return &task, nil
}

func (r *TaskRepository) ListByEntity(ctx context.Context, ref models.EntityRef) ([]*models.Task, error) {
	ids, err := r.client.ZRange(ctx, r.keys.entityTasks(ref.TenantID, ref.Type, ref.ID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks of %s: %w", ref, err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.keys.task(ref.TenantID, id))
	}

	return loadMany[models.Task](ctx, r.client, keys)
}

func (r *TaskRepository) ListOverdue(ctx context.Context, now time.Time) ([]*models.Task, error) {
	keys, err := r.client.ZRangeByScore(ctx, r.keys.dueTasks(), &backend.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatFloat(score(now), 'f', -1, 64),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list due tasks: %w", err)
	}

	tasks, err := loadMany[models.Task](ctx, r.client, keys)
	if err != nil {
		return nil, err
	}

	overdue := make([]*models.Task, 0, len(tasks))

	for _, task := range tasks {
		if task.IsOverdue(now) && task.OverdueNotifiedAt == nil {
			overdue = append(overdue, task)
		}
	}

	return overdue, nil
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

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	key := r.keys.task(task.TenantID, task.ID)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.ZAdd(ctx, r.keys.entityTasks(task.TenantID, task.EntityType, task.EntityID), backend.Z{
		Score:  score(task.CreatedAt),
		Member: task.ID,
	})

	if task.DueAt != nil && task.Status == models.TaskStatusOpen && task.OverdueNotifiedAt == nil {
		pipe.ZAdd(ctx, r.keys.dueTasks(), backend.Z{Score: score(*task.DueAt), Member: key})
	} else {
		pipe.ZRem(ctx, r.keys.dueTasks(), key)
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.ID, err)
	}

	r.logger.DebugContext(ctx, "Task saved", "task_id", task.ID, "tenant_id", task.TenantID)

	return nil
}

package redis_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/persistence/redis"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*redis.Persistence, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store := redis.NewFromClient(logger, client, redis.WithPrefix("test:"))

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	return store, mr
}

func TestNewPersistence(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := redis.NewPersistence(context.Background(), logger, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, store.HealthCheck(context.Background()))
	require.NoError(t, store.Close(context.Background()))

	_, err = redis.NewPersistence(context.Background(), logger, "not a url")
	require.Error(t, err)
}

func TestWorkflowRepository(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()
	repo := store.Workflows()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	save := func(tenantID, id, trigger string, createdAt time.Time, active bool) *models.Workflow {
		workflow := &models.Workflow{
			ID:           id,
			TenantID:     tenantID,
			Name:         "Workflow " + id,
			TriggerEvent: trigger,
			IsActive:     active,
			Actions:      []models.Action{{Type: models.ActionTypeCreateTask, Params: map[string]any{"subject": "x"}}},
			CreatedAt:    createdAt,
		}
		require.NoError(t, repo.Save(ctx, workflow))

		return workflow
	}

	save("acme", "w-2", "deal.updated", base, true)
	save("acme", "w-1", "deal.updated", base, true)
	save("acme", "w-0", "deal.updated", base.Add(time.Second), true)
	save("acme", "w-3", "deal.updated", base, false)
	moved := save("acme", "w-4", "deal.updated", base, true)
	save("globex", "w-5", "deal.updated", base, true)

	moved.TriggerEvent = "deal.created"
	require.NoError(t, repo.Save(ctx, moved))

	assert.True(t, mr.Exists("test:acme:workflow:w-1"))

	workflows, err := repo.ActiveByTrigger(ctx, "acme", "deal.updated")
	require.NoError(t, err)

	ids := make([]string, 0, len(workflows))
	for _, workflow := range workflows {
		ids = append(ids, workflow.ID)
	}

	assert.Equal(t, []string{"w-1", "w-2", "w-0"}, ids)

	created, err := repo.ActiveByTrigger(ctx, "acme", "deal.created")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "w-4", created[0].ID)

	all, err := repo.GetAll(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	require.NoError(t, repo.Delete(ctx, "acme", "w-1"))

	_, err = repo.GetByID(ctx, "acme", "w-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	workflows, err = repo.ActiveByTrigger(ctx, "acme", "deal.updated")
	require.NoError(t, err)
	assert.Len(t, workflows, 2)

	err = repo.Delete(ctx, "acme", "w-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestRecordRepository(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	record := &models.Record{Type: "contact", TenantID: "acme", Attributes: map[string]any{"email": "a@b.c"}}
	require.NoError(t, store.Records().Save(ctx, record))

	stored, err := store.Records().Get(ctx, record.Ref())
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", stored.Attributes["email"])

	_, err = store.Records().Get(ctx, models.EntityRef{Type: "contact", ID: "nope", TenantID: "acme"})
	assert.True(t, persistence.IsRecordNotFound(err))
}

func TestTaskRepository(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	repo := store.Tasks()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	late := &models.Task{TenantID: "acme", Subject: "late", Status: models.TaskStatusOpen, DueAt: &past, EntityType: "deal", EntityID: "d-1"}
	upcoming := &models.Task{TenantID: "globex", Subject: "upcoming", Status: models.TaskStatusOpen, DueAt: &future, EntityType: "deal", EntityID: "d-2"}

	require.NoError(t, repo.Save(ctx, late))
	require.NoError(t, repo.Save(ctx, upcoming))

	overdue, err := repo.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	late.OverdueNotifiedAt = &now
	require.NoError(t, repo.Save(ctx, late))

	overdue, err = repo.ListOverdue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	tasks, err := repo.ListByEntity(ctx, models.EntityRef{Type: "deal", ID: "d-1", TenantID: "acme"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.NotNil(t, tasks[0].OverdueNotifiedAt)

	_, err = repo.GetByID(ctx, "acme", "missing")
	assert.True(t, persistence.IsTaskNotFound(err))
}

func TestNotificationAndRunRepositories(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	ref := models.EntityRef{Type: "deal", ID: "d-1", TenantID: "acme"}

	require.NoError(t, store.Notifications().Save(ctx, &models.Notification{
		TenantID: "acme", EntityType: "deal", EntityID: "d-1", Channel: "in_app", Message: "hello",
	}))

	notifications, err := store.Notifications().ListByEntity(ctx, ref)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "hello", notifications[0].Message)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range 3 {
		require.NoError(t, store.Runs().Save(ctx, &models.WorkflowRun{
			TenantID:   "acme",
			WorkflowID: "w-1",
			Status:     models.RunStatusSkipped,
			StartedAt:  start.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := store.Runs().ListByWorkflow(ctx, "acme", "w-1", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, start.Add(2*time.Minute).Equal(runs[0].StartedAt))
}

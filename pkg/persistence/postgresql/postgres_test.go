package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"workflow_runs", "notifications", "tasks", "records", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("crmflow_test"),
			postgres.WithUsername("crmflow"),
			postgres.WithPassword("crmflow"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	persistence, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = persistence.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return persistence, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer db.Close()

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}

func TestWorkflowRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.Workflows()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	save := func(tenantID, id, trigger string, createdAt time.Time, active bool) {
		require.NoError(t, repo.Save(ctx, &models.Workflow{
			ID:           id,
			TenantID:     tenantID,
			Name:         "Workflow " + id,
			TriggerEvent: trigger,
			IsActive:     active,
			Conditions: []models.Condition{
				{Field: "status", Operator: models.OperatorEqual, Value: "won"},
			},
			Actions: []models.Action{
				{Type: models.ActionTypeCreateTask, Params: map[string]any{"subject": "Follow up", "due_in_days": 3}},
			},
			CreatedAt: createdAt,
		}))
	}

	save("acme", "w-b", "deal.updated", base, true)
	save("acme", "w-a", "deal.updated", base, true)
	save("acme", "w-c", "deal.updated", base.Add(-time.Hour), true)
	save("acme", "w-d", "deal.updated", base, false)
	save("globex", "w-e", "deal.updated", base, true)

	workflows, err := repo.ActiveByTrigger(ctx, "acme", "deal.updated")
	require.NoError(t, err)
	require.Len(t, workflows, 3)
	assert.Equal(t, "w-c", workflows[0].ID)
	assert.Equal(t, "w-a", workflows[1].ID)
	assert.Equal(t, "w-b", workflows[2].ID)

	workflow, err := repo.GetByID(ctx, "acme", "w-a")
	require.NoError(t, err)
	assert.Equal(t, models.OperatorEqual, workflow.Conditions[0].Operator)
	assert.InDelta(t, 3, workflow.Actions[0].Params["due_in_days"], 0.001)

	all, err := repo.GetAll(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	require.NoError(t, repo.Delete(ctx, "acme", "w-a"))

	_, err = repo.GetByID(ctx, "acme", "w-a")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = repo.Delete(ctx, "acme", "w-a")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestRecordAndTaskRepositories(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	record := &models.Record{Type: "deal", TenantID: "acme", Attributes: map[string]any{"name": "Big deal"}}
	require.NoError(t, p.Records().Save(ctx, record))

	require.NoError(t, record.Set("status", "won"))
	require.NoError(t, p.Records().Save(ctx, record))

	stored, err := p.Records().Get(ctx, record.Ref())
	require.NoError(t, err)
	assert.Equal(t, "won", stored.Attributes["status"])

	_, err = p.Records().Get(ctx, models.EntityRef{Type: "deal", ID: "missing", TenantID: "acme"})
	assert.True(t, persistence.IsRecordNotFound(err))

	now := time.Now().UTC()
	due := now.Add(-time.Hour)
	task := &models.Task{
		TenantID:   "acme",
		Subject:    "Call customer",
		Status:     models.TaskStatusOpen,
		DueAt:      &due,
		EntityType: "deal",
		EntityID:   record.ID,
		CreatedBy:  models.SystemCreator,
	}
	require.NoError(t, p.Tasks().Save(ctx, task))

	overdue, err := p.Tasks().ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, task.ID, overdue[0].ID)

	task.OverdueNotifiedAt = &now
	require.NoError(t, p.Tasks().Save(ctx, task))

	overdue, err = p.Tasks().ListOverdue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	tasks, err := p.Tasks().ListByEntity(ctx, record.Ref())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.SystemCreator, tasks[0].CreatedBy)
}

func TestNotificationAndRunRepositories(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	ref := models.EntityRef{Type: "deal", ID: "d-1", TenantID: "acme"}

	require.NoError(t, p.Notifications().Save(ctx, &models.Notification{
		TenantID: "acme", EntityType: "deal", EntityID: "d-1", Channel: "in_app", Message: "Deal won",
	}))

	notifications, err := p.Notifications().ListByEntity(ctx, ref)
	require.NoError(t, err)
	require.Len(t, notifications, 1)

	started := time.Now().UTC()
	require.NoError(t, p.Runs().Save(ctx, &models.WorkflowRun{
		TenantID:     "acme",
		WorkflowID:   "w-1",
		TriggerEvent: "deal.updated",
		EntityType:   "deal",
		EntityID:     "d-1",
		Status:       models.RunStatusMatched,
		Actions: []models.ActionResult{
			{Index: 0, Type: models.ActionTypeCreateTask, Status: models.ActionStatusSucceeded},
		},
		StartedAt:  started,
		FinishedAt: started.Add(time.Millisecond),
	}))

	runs, err := p.Runs().ListByWorkflow(ctx, "acme", "w-1", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.ActionStatusSucceeded, runs[0].Actions[0].Status)
}

package cmd

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence/cache"
	"github.com/dukex/crmflow/pkg/persistence/file"
	"github.com/dukex/crmflow/pkg/persistence/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPersistenceProvider(t *testing.T) {
	tests := map[string]string{
		"/var/lib/crmflow":             "file",
		"file:///var/lib/crmflow":      "file",
		"postgres://localhost/crm":     "postgresql",
		"postgresql://localhost/crm":   "postgresql",
		"redis://localhost:6379/0":     "redis",
		"rediss://cache.internal:6380": "redis",
	}

	for url, expected := range tests {
		assert.Equal(t, expected, PersistenceProvider(url), url)
	}
}

func TestNewPersistence(t *testing.T) {
	ctx := context.Background()

	store, err := NewPersistence(ctx, testLogger(), t.TempDir(), 0)
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, store)

	cached, err := NewPersistence(ctx, testLogger(), t.TempDir(), time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &cache.Persistence{}, cached)

	server := miniredis.RunT(t)

	store, err = NewPersistence(ctx, testLogger(), "redis://"+server.Addr(), 0)
	require.NoError(t, err)
	assert.IsType(t, &redis.Persistence{}, store)
	require.NoError(t, store.Close(ctx))

	_, err = NewPersistence(ctx, testLogger(), "redis://127.0.0.1:1", 0)
	require.Error(t, err)
}

func TestNewEventBus(t *testing.T) {
	bus, err := NewEventBus(EventBusGoChannel, "", "test", testLogger())
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, err = NewEventBus(EventBusKafka, "", "test", testLogger())
	require.Error(t, err)

	_, err = NewEventBus("rabbitmq", "", "test", testLogger())
	require.ErrorContains(t, err, "unsupported event bus provider")
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry(testLogger(), nil, nil, nil)

	assert.Equal(t, []models.ActionType{
		models.ActionTypeCreateTask,
		models.ActionTypeSendNotification,
		models.ActionTypeUpdateField,
	}, reg.ActionTypes())
}

func TestNewApp_RunsWorkflowsOnRecordMutations(t *testing.T) {
	ctx := context.Background()

	app, err := NewApp(ctx, testLogger(), Config{
		ServiceName: "test",
		DatabaseURL: t.TempDir(),
		Notifier:    NotifierStore,
		MaxDepth:    4,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, app.Close(ctx))
	})

	_, err = app.Workflows.Create(ctx, "acme", &models.Workflow{
		Name:         "Welcome contact",
		TriggerEvent: "contact.created",
		IsActive:     true,
		Actions: []models.Action{
			{Type: models.ActionTypeSendNotification, Params: map[string]any{"message": `Welcome {{ field "name" }}`}},
		},
	})
	require.NoError(t, err)

	record, err := app.Entities.Create(ctx, &models.Record{
		Type:       "contact",
		ID:         "c-1",
		TenantID:   "acme",
		Attributes: map[string]any{"name": "Ada"},
	})
	require.NoError(t, err)

	notifications, err := app.Entities.Notifications(ctx, record.Ref())
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Welcome Ada", notifications[0].Message)
}

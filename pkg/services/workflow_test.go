package services

import (
	"testing"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_Create(t *testing.T) {
	service, store := newTestWorkflowService(t)

	workflow := validWorkflow()
	workflow.ID = "client-chosen"

	created, err := service.Create(t.Context(), "acme", workflow)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, "client-chosen", created.ID)
	assert.Equal(t, "acme", created.TenantID)
	assert.False(t, created.CreatedAt.IsZero())

	stored, err := store.Workflows().GetByID(t.Context(), "acme", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Won deal follow up", stored.Name)
}

func TestWorkflow_CreateRequiresTenant(t *testing.T) {
	service, _ := newTestWorkflowService(t)

	_, err := service.Create(t.Context(), "", validWorkflow())
	require.ErrorIs(t, err, ErrTenantRequired)
	assert.True(t, IsValidationError(err))

	_, err = service.Create(t.Context(), "acme", nil)
	require.ErrorIs(t, err, ErrWorkflowNil)
}

func TestWorkflow_Validate(t *testing.T) {
	service, _ := newTestWorkflowService(t)

	testCases := []struct {
		name   string
		mutate func(*models.Workflow)
		target error
	}{
		{
			name:   "missing name",
			mutate: func(w *models.Workflow) { w.Name = "" },
			target: ErrInvalidRequest,
		},
		{
			name:   "malformed trigger event",
			mutate: func(w *models.Workflow) { w.TriggerEvent = "Deal Updated" },
			target: ErrInvalidRequest,
		},
		{
			name:   "no actions",
			mutate: func(w *models.Workflow) { w.Actions = nil },
			target: ErrInvalidRequest,
		},
		{
			name: "unknown operator",
			mutate: func(w *models.Workflow) {
				w.Conditions = []models.Condition{{Field: "status", Operator: "~=", Value: "won"}}
			},
			target: ErrInvalidCondition,
		},
		{
			name: "unknown action type",
			mutate: func(w *models.Workflow) {
				w.Actions = []models.Action{{Type: "send_fax"}}
			},
			target: ErrInvalidAction,
		},
		{
			name: "action params violate schema",
			mutate: func(w *models.Workflow) {
				w.Actions = []models.Action{{Type: models.ActionTypeCreateTask, Params: map[string]any{"due_in_days": 3}}}
			},
			target: ErrInvalidAction,
		},
		{
			name: "update field without field",
			mutate: func(w *models.Workflow) {
				w.Actions = []models.Action{{Type: models.ActionTypeUpdateField, Params: map[string]any{"value": "x"}}}
			},
			target: ErrInvalidAction,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			workflow := validWorkflow()
			workflow.TenantID = "acme"
			tc.mutate(workflow)

			err := service.Validate(workflow)
			require.ErrorIs(t, err, tc.target)
			assert.True(t, IsValidationError(err))
		})
	}

	t.Run("valid workflow", func(t *testing.T) {
		workflow := validWorkflow()
		workflow.TenantID = "acme"

		require.NoError(t, service.Validate(workflow))
	})
}

func TestWorkflow_Update(t *testing.T) {
	service, _ := newTestWorkflowService(t)

	created, err := service.Create(t.Context(), "acme", validWorkflow())
	require.NoError(t, err)

	createdAt := created.CreatedAt

	changed := validWorkflow()
	changed.Name = "Renamed"
	changed.CreatedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	updated, err := service.Update(t.Context(), "acme", created.ID, changed)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, createdAt.Equal(updated.CreatedAt))

	_, err = service.Update(t.Context(), "globex", created.ID, validWorkflow())
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflow_SetActiveAndDelete(t *testing.T) {
	service, store := newTestWorkflowService(t)

	created, err := service.Create(t.Context(), "acme", validWorkflow())
	require.NoError(t, err)

	_, err = service.SetActive(t.Context(), "acme", created.ID, false)
	require.NoError(t, err)

	active, err := store.Workflows().ActiveByTrigger(t.Context(), "acme", "deal.updated")
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, service.Delete(t.Context(), "acme", created.ID))

	_, err = service.FetchByID(t.Context(), "acme", created.ID)
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflow_Import(t *testing.T) {
	service, store := newTestWorkflowService(t)

	first := validWorkflow()
	first.ID = "imported-1"
	first.TenantID = "acme"

	broken := validWorkflow()
	broken.TenantID = "acme"
	broken.TriggerEvent = ""

	err := service.Import(t.Context(), []*models.Workflow{first, broken})
	require.Error(t, err)

	_, err = store.Workflows().GetByID(t.Context(), "acme", "imported-1")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	require.NoError(t, service.Import(t.Context(), []*models.Workflow{first}))

	stored, err := store.Workflows().GetByID(t.Context(), "acme", "imported-1")
	require.NoError(t, err)
	assert.Equal(t, first.Name, stored.Name)
}

func TestWorkflow_Runs(t *testing.T) {
	service, store := newTestWorkflowService(t)

	created, err := service.Create(t.Context(), "acme", validWorkflow())
	require.NoError(t, err)

	require.NoError(t, store.Runs().Save(t.Context(), &models.WorkflowRun{
		TenantID:   "acme",
		WorkflowID: created.ID,
		Status:     models.RunStatusMatched,
		StartedAt:  time.Now().UTC(),
	}))

	runs, err := service.Runs(t.Context(), "acme", created.ID, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = service.Runs(t.Context(), "acme", "missing", 0)
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflow_HealthCheck(t *testing.T) {
	service, _ := newTestWorkflowService(t)

	message, ok := service.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)
}

package services

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/crmflow/pkg/actions/createtask"
	"github.com/dukex/crmflow/pkg/actions/notification"
	"github.com/dukex/crmflow/pkg/actions/updatefield"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence/file"
	"github.com/dukex/crmflow/pkg/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry() *registry.Registry {
	reg := registry.NewRegistry(testLogger())
	reg.RegisterAction(createtask.NewAction(nil))
	reg.RegisterAction(updatefield.NewAction(nil))
	reg.RegisterAction(notification.NewAction(nil))

	return reg
}

func newTestWorkflowService(t *testing.T) (*Workflow, *file.Persistence) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())

	return NewWorkflow(persistence, testRegistry(), testLogger()), persistence
}

func validWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:         "Won deal follow up",
		TriggerEvent: "deal.updated",
		IsActive:     true,
		Conditions: []models.Condition{
			{Field: "status", Operator: models.OperatorEqual, Value: "won"},
		},
		Actions: []models.Action{
			{Type: models.ActionTypeCreateTask, Params: map[string]any{"subject": "Send contract", "due_in_days": 2}},
		},
	}
}

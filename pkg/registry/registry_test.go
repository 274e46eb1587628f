package registry_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/crmflow/pkg/actions/createtask"
	"github.com/dukex/crmflow/pkg/actions/notification"
	"github.com/dukex/crmflow/pkg/actions/updatefield"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry() *registry.Registry {
	reg := registry.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	reg.RegisterAction(createtask.NewAction(nil))
	reg.RegisterAction(updatefield.NewAction(nil))
	reg.RegisterAction(notification.NewAction(nil))

	return reg
}

func TestRegistry_ActionTypes(t *testing.T) {
	reg := newRegistry()

	assert.Equal(t, []models.ActionType{
		models.ActionTypeCreateTask,
		models.ActionTypeSendNotification,
		models.ActionTypeUpdateField,
	}, reg.ActionTypes())

	handler, ok := reg.Action(models.ActionTypeCreateTask)
	require.True(t, ok)
	assert.Equal(t, models.ActionTypeCreateTask, handler.Type())

	_, ok = reg.Action("send_sms")
	assert.False(t, ok)
}

func TestRegistry_ValidateAction(t *testing.T) {
	reg := newRegistry()

	tests := []struct {
		name    string
		action  models.Action
		wantErr error
	}{
		{
			name:   "valid create task",
			action: models.Action{Type: models.ActionTypeCreateTask, Params: map[string]any{"subject": "Call", "due_in_days": 1}},
		},
		{
			name:   "valid notification",
			action: models.Action{Type: models.ActionTypeSendNotification, Params: map[string]any{"message": "hi", "channel": "email"}},
		},
		{
			name:    "unknown type",
			action:  models.Action{Type: "send_fax"},
			wantErr: registry.ErrActionNotRegistered,
		},
		{
			name:    "schema violation",
			action:  models.Action{Type: models.ActionTypeSendNotification, Params: map[string]any{"message": "hi", "channel": "pigeon"}},
			wantErr: registry.ErrInvalidActionParams,
		},
		{
			name:    "missing params",
			action:  models.Action{Type: models.ActionTypeUpdateField},
			wantErr: registry.ErrInvalidActionParams,
		},
		{
			name:    "wrong param type",
			action:  models.Action{Type: models.ActionTypeCreateTask, Params: map[string]any{"subject": "Call", "due_in_days": 1.5}},
			wantErr: registry.ErrInvalidActionParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.ValidateAction(tt.action)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_HealthCheck(t *testing.T) {
	message, ok := registry.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil))).HealthCheck()
	assert.False(t, ok)
	assert.Equal(t, "No actions registered", message)

	message, ok = newRegistry().HealthCheck()
	assert.True(t, ok)
	assert.Equal(t, "3 actions registered", message)
}

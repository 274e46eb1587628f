package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/crmflow/pkg/mocks"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func request(params map[string]any) protocol.ActionRequest {
	return protocol.ActionRequest{
		Workflow: &models.Workflow{ID: "wf-7", Name: "Welcome"},
		Entity: &models.Record{
			Type:       "contact",
			ID:         "c-1",
			TenantID:   "acme",
			Attributes: map[string]any{"name": "Ada", "owner": map[string]any{"name": "Grace"}},
		},
		Action: models.Action{Type: models.ActionTypeSendNotification, Params: params},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestAction_Execute(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	notifier := &mocks.MockNotifier{}

	var sent *models.Notification

	notifier.On("Notify", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*models.Notification) }).
		Return(nil)

	err := NewAction(notifier, WithClock(func() time.Time { return now })).Execute(context.Background(), request(map[string]any{
		"recipient": "sales-team",
		"channel":   "slack",
		"subject":   "New contact",
		"message":   `{{ field "name" }} was assigned to {{ field "owner.name" }}`,
	}))
	require.NoError(t, err)
	require.NotNil(t, sent)

	assert.Equal(t, "Ada was assigned to Grace", sent.Message)
	assert.Equal(t, "New contact", sent.Subject)
	assert.Equal(t, "slack", sent.Channel)
	assert.Equal(t, "sales-team", sent.Recipient)
	assert.Equal(t, "acme", sent.TenantID)
	assert.Equal(t, "wf-7", sent.WorkflowID)
	assert.Equal(t, "contact", sent.EntityType)
	assert.Equal(t, "c-1", sent.EntityID)
	assert.Equal(t, now, sent.CreatedAt)
}

func TestAction_ExecuteDefaultsChannel(t *testing.T) {
	notifier := &mocks.MockNotifier{}
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
		return n.Channel == models.DefaultNotificationChannel
	})).Return(nil)

	require.NoError(t, NewAction(notifier).Execute(context.Background(), request(map[string]any{"message": "hi"})))
	notifier.AssertExpectations(t)
}

func TestAction_ExecuteNotifierError(t *testing.T) {
	notifier := &mocks.MockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	err := NewAction(notifier).Execute(context.Background(), request(map[string]any{"message": "hi"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestAction_ExecuteTemplateError(t *testing.T) {
	err := NewAction(&mocks.MockNotifier{}).Execute(context.Background(), request(map[string]any{"message": "{{ .broken"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render message")
}

func TestAction_Validate(t *testing.T) {
	action := NewAction(nil)

	require.NoError(t, action.Validate(map[string]any{"message": "hi"}))
	assert.ErrorIs(t, action.Validate(map[string]any{"recipient": "owner"}), models.ErrInvalidParams)
}

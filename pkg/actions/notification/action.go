// Package notification implements the send_notification workflow action.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/protocol"
	"github.com/dukex/crmflow/pkg/template"
)

type Option func(*Action)

func WithClock(now func() time.Time) Option {
	return func(a *Action) {
		a.now = now
	}
}

// Action renders a message for the triggering entity and hands it to the notifier.
type Action struct {
	notifier protocol.Notifier
	now      func() time.Time
}

func NewAction(notifier protocol.Notifier, opts ...Option) *Action {
	action := &Action{
		notifier: notifier,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(action)
	}

	return action
}

func (*Action) Type() models.ActionType {
	return models.ActionTypeSendNotification
}

func (*Action) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"message"},
		"properties": map[string]any{
			"message":   map[string]any{"type": "string", "minLength": 1},
			"subject":   map[string]any{"type": "string"},
			"recipient": map[string]any{"type": []any{"string", "integer"}},
			"channel":   map[string]any{"type": "string", "enum": []any{"in_app", "email", "sms", "slack"}},
		},
	}
}

func (*Action) Validate(params map[string]any) error {
	_, err := decode(params)

	return err
}

func decode(params map[string]any) (*models.SendNotificationParams, error) {
	var decoded models.SendNotificationParams

	if err := models.DecodeParams(params, &decoded); err != nil {
		return nil, err
	}

	if decoded.Message == "" {
		return nil, fmt.Errorf("%w: message is required", models.ErrInvalidParams)
	}

	return &decoded, nil
}

func (a *Action) Execute(ctx context.Context, req protocol.ActionRequest) error {
	params, err := decode(req.Action.Params)
	if err != nil {
		return err
	}

	message, err := template.RenderString(params.Message, req.Workflow, req.Entity)
	if err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}

	subject, err := template.RenderString(params.Subject, req.Workflow, req.Entity)
	if err != nil {
		return fmt.Errorf("failed to render subject: %w", err)
	}

	channel := params.Channel
	if channel == "" {
		channel = models.DefaultNotificationChannel
	}

	ref := req.Entity.Ref()

	notification := &models.Notification{
		TenantID:   ref.TenantID,
		WorkflowID: req.Workflow.ID,
		EntityType: ref.Type,
		EntityID:   ref.ID,
		Recipient:  params.Recipient,
		Channel:    channel,
		Subject:    subject,
		Message:    message,
		CreatedAt:  a.now().UTC(),
	}

	if err := a.notifier.Notify(ctx, notification); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	req.Logger.Info("Notification sent", "channel", channel, "recipient", params.Recipient)

	return nil
}

package models

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

type ActionType string

const (
	ActionTypeCreateTask       ActionType = "create_task"
	ActionTypeUpdateField      ActionType = "update_field"
	ActionTypeSendNotification ActionType = "send_notification"
)

// CreateTaskParams are the params of a create_task action.
type CreateTaskParams struct {
	Subject     string `mapstructure:"subject"     validate:"required"`
	Description string `mapstructure:"description"`
	DueInDays   *int   `mapstructure:"due_in_days" validate:"omitempty,min=0"`
	AssignedTo  string `mapstructure:"assigned_to"`
}

// UpdateFieldParams are the params of an update_field action.
type UpdateFieldParams struct {
	Field string `mapstructure:"field" validate:"required"`
	Value any    `mapstructure:"value"`
}

// SendNotificationParams are the params of a send_notification action.
// Message is a text/template rendered against the triggering entity.
type SendNotificationParams struct {
	Message   string `mapstructure:"message"   validate:"required"`
	Subject   string `mapstructure:"subject"`
	Recipient string `mapstructure:"recipient"`
	Channel   string `mapstructure:"channel"`
}

// DecodeParams decodes loosely typed action params into one of the typed params structs.
func DecodeParams(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create params decoder: %w", err)
	}

	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	return nil
}

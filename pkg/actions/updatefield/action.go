// Package updatefield implements the update_field workflow action.
package updatefield

import (
	"context"
	"fmt"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/protocol"
	"github.com/dukex/crmflow/pkg/template"
)

// Action writes a value to a field of the triggering entity through the entity updater.
type Action struct {
	updater protocol.EntityUpdater
}

func NewAction(updater protocol.EntityUpdater) *Action {
	return &Action{updater: updater}
}

func (*Action) Type() models.ActionType {
	return models.ActionTypeUpdateField
}

func (*Action) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"field"},
		"properties": map[string]any{
			"field": map[string]any{"type": "string", "minLength": 1},
		},
	}
}

func (*Action) Validate(params map[string]any) error {
	_, err := decode(params)

	return err
}

func decode(params map[string]any) (*models.UpdateFieldParams, error) {
	var decoded models.UpdateFieldParams

	if err := models.DecodeParams(params, &decoded); err != nil {
		return nil, err
	}

	if decoded.Field == "" {
		return nil, fmt.Errorf("%w: field is required", models.ErrInvalidParams)
	}

	return &decoded, nil
}

func (a *Action) Execute(ctx context.Context, req protocol.ActionRequest) error {
	params, err := decode(req.Action.Params)
	if err != nil {
		return err
	}

	value := params.Value
	if text, ok := value.(string); ok && template.IsTemplate(text) {
		rendered, err := template.RenderValue(text, req.Workflow, req.Entity)
		if err != nil {
			return fmt.Errorf("failed to render value: %w", err)
		}

		value = rendered
	}

	if err := a.updater.UpdateField(ctx, req.Entity, params.Field, value); err != nil {
		return fmt.Errorf("failed to update field %s: %w", params.Field, err)
	}

	req.Logger.Info("Field updated", "field", params.Field)

	return nil
}

// Package createtask implements the create_task workflow action.
package createtask

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/protocol"
	"github.com/dukex/crmflow/pkg/template"
	"github.com/go-playground/validator/v10"
)

type Option func(*Action)

// WithClock overrides the clock used for due dates and timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Action) {
		a.now = now
	}
}

// Action creates a task linked to the triggering entity.
type Action struct {
	tasks    protocol.TaskCreator
	now      func() time.Time
	validate *validator.Validate
}

func NewAction(tasks protocol.TaskCreator, opts ...Option) *Action {
	action := &Action{
		tasks:    tasks,
		now:      time.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	for _, opt := range opts {
		opt(action)
	}

	return action
}

func (*Action) Type() models.ActionType {
	return models.ActionTypeCreateTask
}

func (*Action) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"subject"},
		"properties": map[string]any{
			"subject":     map[string]any{"type": "string", "minLength": 1},
			"description": map[string]any{"type": "string"},
			"due_in_days": map[string]any{"type": "integer", "minimum": 0},
			"assigned_to": map[string]any{"type": []any{"string", "integer"}},
		},
	}
}

func (a *Action) Validate(params map[string]any) error {
	_, err := a.decode(params)

	return err
}

func (a *Action) decode(params map[string]any) (*models.CreateTaskParams, error) {
	var decoded models.CreateTaskParams

	if err := models.DecodeParams(params, &decoded); err != nil {
		return nil, err
	}

	if err := a.validate.Struct(decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidParams, err)
	}

	return &decoded, nil
}

func (a *Action) Execute(ctx context.Context, req protocol.ActionRequest) error {
	params, err := a.decode(req.Action.Params)
	if err != nil {
		return err
	}

	subject, err := template.RenderString(params.Subject, req.Workflow, req.Entity)
	if err != nil {
		return fmt.Errorf("failed to render subject: %w", err)
	}

	description, err := template.RenderString(params.Description, req.Workflow, req.Entity)
	if err != nil {
		return fmt.Errorf("failed to render description: %w", err)
	}

	ref := req.Entity.Ref()
	now := a.now().UTC()

	task := &models.Task{
		TenantID:    ref.TenantID,
		Subject:     subject,
		Description: description,
		Status:      models.TaskStatusOpen,
		AssignedTo:  params.AssignedTo,
		EntityType:  ref.Type,
		EntityID:    ref.ID,
		WorkflowID:  req.Workflow.ID,
		CreatedBy:   models.SystemCreator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if params.DueInDays != nil {
		due := now.AddDate(0, 0, *params.DueInDays)
		task.DueAt = &due
	}

	if err := a.tasks.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	req.Logger.Info("Task created", "task_id", task.ID, "subject", task.Subject)

	return nil
}

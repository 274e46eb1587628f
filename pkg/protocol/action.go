// Package protocol defines the contracts between the workflow engine, action
// handlers and the collaborators handlers delegate side effects to.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/crmflow/pkg/models"
)

// ActionRequest carries everything a handler needs to execute one action.
type ActionRequest struct {
	Workflow *models.Workflow
	Entity   models.Entity
	Action   models.Action
	Index    int
	Logger   *slog.Logger
}

type Action interface {
	Type() models.ActionType
	// Schema is the JSON schema the action params must satisfy when a workflow is saved.
	Schema() map[string]any
	// Validate checks params beyond what the schema can express.
	Validate(params map[string]any) error
	Execute(ctx context.Context, req ActionRequest) error
}

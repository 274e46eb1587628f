package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/dukex/crmflow/pkg/metrics"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/otelhelper"
	"github.com/dukex/crmflow/pkg/protocol"
	"github.com/dukex/crmflow/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dispatcher executes the actions of a matched workflow in list order. A failing,
// panicking or unknown action is logged and recorded; the following actions still run.
type Dispatcher struct {
	registry *registry.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(registry *registry.Registry, logger *slog.Logger, metrics *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger.With("module", "action_dispatcher"),
		metrics:  metrics,
	}
}

func (d *Dispatcher) Dispatch(
	ctx context.Context,
	actions []models.Action,
	entity models.Entity,
	workflow *models.Workflow,
) []models.ActionResult {
	logger := d.logger.With("workflow_id", workflow.ID, "entity", entity.Ref().String())
	span := trace.SpanFromContext(ctx)
	results := make([]models.ActionResult, 0, len(actions))

	for index, action := range actions {
		actionLogger := logger.With("action_index", index, "action_type", action.Type)
		result := models.ActionResult{Index: index, Type: action.Type}

		handler, ok := d.registry.Action(action.Type)
		if !ok {
			err := &ActionError{WorkflowID: workflow.ID, Index: index, Type: action.Type, Err: ErrUnknownActionType}

			actionLogger.ErrorContext(ctx, "Unknown action type, skipping", "error", err)

			result.Status = models.ActionStatusSkipped
			result.Error = err.Error()
		} else {
			err := d.execute(ctx, handler, protocol.ActionRequest{
				Workflow: workflow,
				Entity:   entity,
				Action:   action,
				Index:    index,
				Logger:   actionLogger,
			})
			if err != nil {
				err = &ActionError{WorkflowID: workflow.ID, Index: index, Type: action.Type, Err: err}

				actionLogger.ErrorContext(ctx, "Action failed", "error", err)
				otelhelper.SetError(span, err,
					attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
					attribute.Int(otelhelper.ActionIndexKey, index))

				result.Status = models.ActionStatusFailed
				result.Error = err.Error()
			} else {
				result.Status = models.ActionStatusSucceeded
			}
		}

		span.AddEvent("action."+string(result.Status), trace.WithAttributes(
			attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
			attribute.Int(otelhelper.ActionIndexKey, index),
		))
		d.metrics.ActionExecuted(string(action.Type), string(result.Status))

		results = append(results, result)
	}

	return results
}

func (d *Dispatcher) execute(ctx context.Context, handler protocol.Action, req protocol.ActionRequest) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			req.Logger.ErrorContext(ctx, "Action panicked", "panic", recovered, "stack", string(debug.Stack()))

			err = fmt.Errorf("%w: %v", ErrActionPanicked, recovered)
		}
	}()

	return handler.Execute(ctx, req)
}

// Package workflow runs the tenant workflows bound to a trigger event against
// the entity that fired it.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/dukex/crmflow/pkg/conditions"
	"github.com/dukex/crmflow/pkg/metrics"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/otelhelper"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Option func(*Engine)

// WithRunRepository records a WorkflowRun for every evaluation attempt.
func WithRunRepository(runs persistence.RunRepository) Option {
	return func(e *Engine) {
		e.runs = runs
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithMaxDepth sets how many trigger events may be nested through actions
// before the innermost one is dropped. Values below one keep the default.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

type Engine struct {
	workflows  persistence.WorkflowRepository
	runs       persistence.RunRepository
	evaluator  *conditions.Evaluator
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
	maxDepth   int
	now        func() time.Time
}

func NewEngine(
	workflows persistence.WorkflowRepository,
	dispatcher *Dispatcher,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	engine := &Engine{
		workflows:  workflows,
		evaluator:  conditions.NewEvaluator(logger),
		dispatcher: dispatcher,
		tracer:     otelhelper.NoopTracer(),
		logger:     logger.With("module", "workflow_engine"),
		maxDepth:   DefaultMaxDepth,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Process evaluates every active workflow of the entity's tenant bound to
// triggerEvent and executes the actions of those that match. Failures are
// logged and never reach the caller.
func (e *Engine) Process(ctx context.Context, triggerEvent string, entity models.Entity) {
	_ = e.Run(ctx, triggerEvent, entity)
}

// Run is Process returning one report per workflow that was attempted.
// The mutation that fired triggerEvent is already committed, so cancelling
// ctx does not stop the workflows bound to it.
func (e *Engine) Run(ctx context.Context, triggerEvent string, entity models.Entity) (runs []*models.WorkflowRun) {
	ctx = context.WithoutCancel(ctx)

	defer func() {
		if recovered := recover(); recovered != nil {
			e.logger.ErrorContext(ctx, "Trigger event processing failed",
				"trigger_event", triggerEvent,
				"error", fmt.Errorf("%w: %v", ErrWorkflowPanicked, recovered),
				"stack", string(debug.Stack()))
		}
	}()

	if entity == nil {
		e.logger.WarnContext(ctx, "Trigger event without entity ignored", "trigger_event", triggerEvent)

		return nil
	}

	ref := entity.Ref()
	logger := e.logger.With("trigger_event", triggerEvent, "entity", ref.String())
	current := newFrame(triggerEvent, ref)

	if err := checkReentry(chain(ctx), current, e.maxDepth); err != nil {
		logger.WarnContext(ctx, "Recursive trigger event aborted", "error", err, "depth", Depth(ctx))
		e.metrics.RecursionAborted()

		return nil
	}

	ctx = withFrame(ctx, current)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.process",
		attribute.String(otelhelper.TenantIDKey, ref.TenantID),
		attribute.String(otelhelper.TriggerEventKey, triggerEvent),
		attribute.String(otelhelper.EntityTypeKey, ref.Type),
		attribute.String(otelhelper.EntityIDKey, ref.ID),
	)
	defer span.End()

	started := e.now()
	defer func() {
		e.metrics.ProcessDuration(triggerEvent, e.now().Sub(started))
	}()

	workflows, err := e.load(ctx, ref.TenantID, triggerEvent)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load workflows", "error", err)
		otelhelper.SetError(span, err)

		return nil
	}

	logger.DebugContext(ctx, "Processing trigger event", "workflows", len(workflows))

	runs = make([]*models.WorkflowRun, 0, len(workflows))
	for _, wf := range workflows {
		runs = append(runs, e.runWorkflow(ctx, logger, triggerEvent, wf, entity))
	}

	return runs
}

// load returns the active workflows bound to the trigger, in execution order.
// Repository results are filtered again so a misbehaving store can never leak
// another tenant's workflows into this call.
func (e *Engine) load(ctx context.Context, tenantID, triggerEvent string) ([]*models.Workflow, error) {
	found, err := e.workflows.ActiveByTrigger(ctx, tenantID, triggerEvent)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(found))
	for _, wf := range found {
		if wf == nil || !wf.IsActive || wf.TenantID != tenantID || wf.TriggerEvent != triggerEvent {
			continue
		}

		workflows = append(workflows, wf)
	}

	persistence.SortWorkflows(workflows)

	return workflows, nil
}

func (e *Engine) runWorkflow(
	ctx context.Context,
	logger *slog.Logger,
	triggerEvent string,
	wf *models.Workflow,
	entity models.Entity,
) (run *models.WorkflowRun) {
	ref := entity.Ref()
	logger = logger.With("workflow_id", wf.ID, "workflow_name", wf.Name)

	run = &models.WorkflowRun{
		TenantID:     ref.TenantID,
		WorkflowID:   wf.ID,
		TriggerEvent: triggerEvent,
		EntityType:   ref.Type,
		EntityID:     ref.ID,
		StartedAt:    e.now().UTC(),
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, wf.ID),
		attribute.String(otelhelper.WorkflowNameKey, wf.Name),
	)

	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("%w: %v", ErrWorkflowPanicked, recovered)

			logger.ErrorContext(ctx, "Workflow failed", "error", err, "stack", string(debug.Stack()))
			otelhelper.SetError(span, err)

			run.Status = models.RunStatusFailed
			run.Error = err.Error()
		}

		run.FinishedAt = e.now().UTC()

		span.SetAttributes(attribute.String(otelhelper.RunStatusKey, string(run.Status)))
		span.End()

		e.metrics.WorkflowRun(triggerEvent, string(run.Status))
		e.record(ctx, logger, run)
	}()

	if !e.evaluator.WithLogger(logger).Matches(wf.Conditions, entity) {
		run.Status = models.RunStatusSkipped

		return run
	}

	logger.InfoContext(ctx, "Workflow matched", "actions", len(wf.Actions))

	run.Status = models.RunStatusMatched
	run.Actions = e.dispatcher.Dispatch(ctx, wf.Actions, entity, wf)

	if failed := countFailed(run.Actions); failed > 0 {
		run.Error = fmt.Sprintf("%d of %d actions failed", failed, len(run.Actions))
	}

	return run
}

func (e *Engine) record(ctx context.Context, logger *slog.Logger, run *models.WorkflowRun) {
	if e.runs == nil {
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		logger.WarnContext(ctx, "Failed to generate run id", "error", err)

		return
	}

	run.ID = id.String()

	if err := e.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		logger.WarnContext(ctx, "Failed to record workflow run", "error", err)
	}
}

func countFailed(results []models.ActionResult) int {
	failed := 0

	for _, result := range results {
		if result.Status == models.ActionStatusFailed {
			failed++
		}
	}

	return failed
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/dukex/crmflow/pkg/conditions"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/registry"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	triggerEventPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)
)

const defaultRunsLimit = 50

// Workflow manages the workflow definitions of each tenant. Definitions are
// validated on save so the engine only ever sees well formed conditions and actions.
type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, registry *registry.Registry, logger *slog.Logger) *Workflow {
	validate := validator.New(validator.WithRequiredStructEnabled())

	_ = validate.RegisterValidation("trigger_event", func(fl validator.FieldLevel) bool {
		return triggerEventPattern.MatchString(fl.Field().String())
	})

	return &Workflow{
		persistence: persistence,
		registry:    registry,
		validate:    validate,
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Validate checks a workflow definition: required fields, trigger event shape,
// condition operators and every action against its registered handler.
func (w *Workflow) Validate(workflow *models.Workflow) error {
	if workflow == nil {
		return ErrWorkflowNil
	}

	err := w.validate.Struct(workflow)
	if err != nil {
		return NewValidationError("Validate", "invalid_workflow", err.Error(), errors.Join(ErrInvalidRequest, err))
	}

	for index, condition := range workflow.Conditions {
		err := conditions.Validate(condition)
		if err != nil {
			return NewValidationError("Validate", "invalid_condition",
				fmt.Sprintf("condition %d: %v", index, err), errors.Join(ErrInvalidCondition, err))
		}
	}

	for index, action := range workflow.Actions {
		err := w.registry.ValidateAction(action)
		if err != nil {
			return NewValidationError("Validate", "invalid_action",
				fmt.Sprintf("action %d: %v", index, err), errors.Join(ErrInvalidAction, err))
		}
	}

	return nil
}

func (w *Workflow) List(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}

	workflows, err := w.persistence.Workflows().GetAll(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

func (w *Workflow) FetchByID(ctx context.Context, tenantID, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow: %w", err)
	}

	return workflow, nil
}

// Create validates and stores a new workflow for the tenant.
func (w *Workflow) Create(ctx context.Context, tenantID string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if tenantID == "" {
		return nil, ErrTenantRequired
	}

	workflow.ID = ""
	workflow.TenantID = tenantID

	return w.save(ctx, workflow)
}

// Update replaces the definition of an existing workflow, keeping its identity and creation time.
func (w *Workflow) Update(ctx context.Context, tenantID, id string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.FetchByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	workflow.ID = existing.ID
	workflow.TenantID = existing.TenantID
	workflow.CreatedAt = existing.CreatedAt

	return w.save(ctx, workflow)
}

// SetActive enables or disables a workflow without touching its definition.
func (w *Workflow) SetActive(ctx context.Context, tenantID, id string, active bool) (*models.Workflow, error) {
	workflow, err := w.FetchByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	workflow.IsActive = active

	err = w.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

func (w *Workflow) Delete(ctx context.Context, tenantID, id string) error {
	err := w.persistence.Workflows().Delete(ctx, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow deleted", "tenant_id", tenantID, "workflow_id", id)

	return nil
}

// Import upserts definitions as they are, ids included. Every definition is
// validated before any is stored.
func (w *Workflow) Import(ctx context.Context, workflows []*models.Workflow) error {
	for index, workflow := range workflows {
		err := w.Validate(workflow)
		if err != nil {
			return fmt.Errorf("workflow %d (%s): %w", index, workflowName(workflow), err)
		}
	}

	for _, workflow := range workflows {
		err := w.persistence.Workflows().Save(ctx, workflow)
		if err != nil {
			return fmt.Errorf("failed to import workflow %s: %w", workflow.Name, err)
		}
	}

	return nil
}

// Runs returns the latest evaluation attempts of a workflow.
func (w *Workflow) Runs(ctx context.Context, tenantID, id string, limit int) ([]*models.WorkflowRun, error) {
	_, err := w.FetchByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultRunsLimit
	}

	runs, err := w.persistence.Runs().ListByWorkflow(ctx, tenantID, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow runs: %w", err)
	}

	return runs, nil
}

func (w *Workflow) save(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	err := w.Validate(workflow)
	if err != nil {
		return nil, err
	}

	err = w.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow saved",
		"tenant_id", workflow.TenantID,
		"workflow_id", workflow.ID,
		"trigger_event", workflow.TriggerEvent)

	return workflow, nil
}

func workflowName(workflow *models.Workflow) string {
	if workflow == nil {
		return "nil"
	}

	return workflow.Name
}

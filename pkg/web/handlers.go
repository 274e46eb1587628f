package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/registry"
	"github.com/dukex/crmflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const tenantLocal = "tenant_id"

// Runner evaluates the workflows bound to a trigger event and reports every attempt.
type Runner interface {
	Run(ctx context.Context, triggerEvent string, entity models.Entity) []*models.WorkflowRun
}

type APIHandlers struct {
	workflowService *services.Workflow
	entities        *services.Entities
	tasks           *services.Tasks
	runner          Runner
	validator       *validator.Validate
	registry        *registry.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	entities *services.Entities,
	tasks *services.Tasks,
	runner Runner,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		entities:        entities,
		tasks:           tasks,
		runner:          runner,
		validator:       validator,
		registry:        registry,
	}
}

// RequireTenant rejects requests without a tenant header.
func RequireTenant(c fiber.Ctx) error {
	tenantID := c.Get(TenantHeader)
	if tenantID == "" {
		return badRequest(c, TenantHeader+" header is required")
	}

	c.Locals(tenantLocal, tenantID)

	return c.Next()
}

func tenant(c fiber.Ctx) string {
	tenantID, _ := c.Locals(tenantLocal).(string)

	return tenantID
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "crmflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "crmflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) ListActions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"actions": h.registry.ActionTypes()})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context(), tenant(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), tenant(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	req, err := h.bindWorkflow(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), tenant(c), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	req, err := h.bindWorkflow(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), tenant(c), c.Params("id"), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) bindWorkflow(c fiber.Ctx) (*WorkflowRequest, error) {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return nil, errInvalidJSON
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}

	return &req, nil
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Delete(c.Context(), tenant(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *APIHandlers) DeactivateWorkflow(c fiber.Ctx) error {
	return h.setActive(c, false)
}

func (h *APIHandlers) setActive(c fiber.Ctx, active bool) error {
	workflow, err := h.workflowService.SetActive(c.Context(), tenant(c), c.Params("id"), active)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetWorkflowRuns(c fiber.Ctx) error {
	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			return badRequest(c, "Invalid query parameters: limit must be a positive integer")
		}

		limit = parsed
	}

	runs, err := h.workflowService.Runs(c.Context(), tenant(c), c.Params("id"), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

func (h *APIHandlers) ref(c fiber.Ctx) models.EntityRef {
	return models.EntityRef{Type: c.Params("type"), ID: c.Params("id"), TenantID: tenant(c)}
}

func (h *APIHandlers) bindRecord(c fiber.Ctx) (*RecordRequest, error) {
	var req RecordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return nil, errInvalidJSON
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}

	return &req, nil
}

func (h *APIHandlers) CreateRecord(c fiber.Ctx) error {
	req, err := h.bindRecord(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	record, err := h.entities.Create(c.Context(), &models.Record{
		Type:       c.Params("type"),
		ID:         req.ID,
		TenantID:   tenant(c),
		Attributes: req.Attributes,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (h *APIHandlers) GetRecord(c fiber.Ctx) error {
	record, err := h.entities.Get(c.Context(), h.ref(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) UpdateRecord(c fiber.Ctx) error {
	req, err := h.bindRecord(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	record, err := h.entities.Update(c.Context(), h.ref(c), req.Attributes)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) GetRecordTasks(c fiber.Ctx) error {
	tasks, err := h.tasks.ListByEntity(c.Context(), h.ref(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"tasks": tasks})
}

func (h *APIHandlers) GetRecordNotifications(c fiber.Ctx) error {
	notifications, err := h.entities.Notifications(c.Context(), h.ref(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"notifications": notifications})
}

func (h *APIHandlers) CompleteTask(c fiber.Ctx) error {
	task, err := h.tasks.Complete(c.Context(), tenant(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(task)
}

// FireEvent runs the workflows bound to a trigger event for a stored entity
// and returns what happened to each of them.
func (h *APIHandlers) FireEvent(c fiber.Ctx) error {
	var req EventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	entity, err := h.entity(c.Context(), models.EntityRef{Type: req.EntityType, ID: req.EntityID, TenantID: tenant(c)}, req.Attributes)
	if err != nil {
		return handleServiceError(c, err)
	}

	runs := h.runner.Run(c.Context(), req.TriggerEvent, entity)
	if runs == nil {
		runs = []*models.WorkflowRun{}
	}

	return c.JSON(EventResponse{TriggerEvent: req.TriggerEvent, Runs: runs})
}

//nolint:ireturn // tasks and records are both entities
func (h *APIHandlers) entity(ctx context.Context, ref models.EntityRef, attributes map[string]any) (models.Entity, error) {
	if attributes != nil {
		return &models.Record{Type: ref.Type, ID: ref.ID, TenantID: ref.TenantID, Attributes: attributes}, nil
	}

	if ref.Type == models.TaskEntityType {
		return h.tasks.FetchByID(ctx, ref.TenantID, ref.ID)
	}

	return h.entities.Get(ctx, ref)
}

// Package web provides the HTTP API of crmflow.
package web

import "github.com/dukex/crmflow/pkg/models"

// TenantHeader carries the tenant every request acts for.
const TenantHeader = "X-Tenant-ID"

// WorkflowRequest is the body for creating or replacing a workflow.
type WorkflowRequest struct {
	Name         string             `json:"name"                  validate:"required,min=3"`
	Description  string             `json:"description,omitempty"`
	TriggerEvent string             `json:"trigger_event"         validate:"required"`
	Conditions   []models.Condition `json:"conditions"`
	Actions      []models.Action    `json:"actions"               validate:"required,min=1"`
	IsActive     *bool              `json:"is_active,omitempty"`
	Owner        string             `json:"owner"`
}

// Workflow converts the request to a workflow definition. Workflows are active
// unless the request says otherwise.
func (r WorkflowRequest) Workflow() *models.Workflow {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	conditions := r.Conditions
	if conditions == nil {
		conditions = []models.Condition{}
	}

	return &models.Workflow{
		Name:         r.Name,
		Description:  r.Description,
		TriggerEvent: r.TriggerEvent,
		Conditions:   conditions,
		Actions:      r.Actions,
		IsActive:     active,
		Owner:        r.Owner,
	}
}

// RecordRequest is the body for creating or updating a CRM record.
type RecordRequest struct {
	ID         string         `json:"id,omitempty"`
	Attributes map[string]any `json:"attributes" validate:"required"`
}

// EventRequest fires a trigger event for a stored entity. When Attributes is
// set it is used as the entity snapshot instead of the stored record.
type EventRequest struct {
	TriggerEvent string         `json:"trigger_event"        validate:"required"`
	EntityType   string         `json:"entity_type"          validate:"required"`
	EntityID     string         `json:"entity_id"            validate:"required"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// EventResponse reports the evaluation of every workflow bound to the event.
type EventResponse struct {
	TriggerEvent string                `json:"trigger_event"`
	Runs         []*models.WorkflowRun `json:"runs"`
}

// Package models defines the domain types of the CRM workflow automation core.
package models

import "time"

// Workflow is a tenant defined rule: conditions and actions bound to one trigger event.
type Workflow struct {
	ID           string      `json:"id"                    yaml:"id,omitempty"`
	TenantID     string      `json:"tenant_id"             yaml:"tenant_id"             validate:"required"`
	Name         string      `json:"name"                  yaml:"name"                  validate:"required,min=3"`
	Description  string      `json:"description,omitempty" yaml:"description,omitempty"`
	TriggerEvent string      `json:"trigger_event"         yaml:"trigger_event"         validate:"required,trigger_event"`
	Conditions   []Condition `json:"conditions"            yaml:"conditions"            validate:"dive"`
	Actions      []Action    `json:"actions"               yaml:"actions"               validate:"required,min=1,dive"`
	IsActive     bool        `json:"is_active"             yaml:"is_active"`
	Owner        string      `json:"owner"                 yaml:"owner"`
	CreatedAt    time.Time   `json:"created_at"            yaml:"created_at,omitempty"`
	UpdatedAt    time.Time   `json:"updated_at"            yaml:"updated_at,omitempty"`
}

// Condition is a single field/operator/value predicate. Conditions of a workflow are AND-ed.
type Condition struct {
	Field    string   `json:"field"           yaml:"field"           validate:"required"`
	Operator Operator `json:"operator"        yaml:"operator"        validate:"required"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
}

// Action is a declarative side effect executed when the workflow matches.
type Action struct {
	Type   ActionType     `json:"type"             yaml:"type"             validate:"required"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Less orders workflows for evaluation: oldest first, id as tie breaker.
func (w *Workflow) Less(other *Workflow) bool {
	if !w.CreatedAt.Equal(other.CreatedAt) {
		return w.CreatedAt.Before(other.CreatedAt)
	}

	return w.ID < other.ID
}

package models

import "time"

type RunStatus string

const (
	RunStatusMatched RunStatus = "matched"
	RunStatusSkipped RunStatus = "skipped"
	RunStatusFailed  RunStatus = "failed"
)

type ActionStatus string

const (
	ActionStatusSucceeded ActionStatus = "succeeded"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusSkipped   ActionStatus = "skipped"
)

// WorkflowRun records one evaluation attempt of a workflow for an event.
type WorkflowRun struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	WorkflowID   string         `json:"workflow_id"`
	TriggerEvent string         `json:"trigger_event"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	Status       RunStatus      `json:"status"`
	Error        string         `json:"error,omitempty"`
	Actions      []ActionResult `json:"actions,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}

type ActionResult struct {
	Index  int          `json:"index"`
	Type   ActionType   `json:"type"`
	Status ActionStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// Failed reports whether any action of the run failed.
func (r *WorkflowRun) Failed() bool {
	for _, action := range r.Actions {
		if action.Status == ActionStatusFailed {
			return true
		}
	}

	return r.Status == RunStatusFailed
}

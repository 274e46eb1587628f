package models

import (
	"fmt"
	"time"
)

// SystemCreator marks records created by workflow actions rather than by a user.
const SystemCreator = "system:workflow"

const TaskEntityType = "task"

type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusCompleted TaskStatus = "completed"
)

// Task is a to-do item linked polymorphically to the entity it is about.
type Task struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	Subject           string     `json:"subject"`
	Description       string     `json:"description,omitempty"`
	Status            TaskStatus `json:"status"`
	DueAt             *time.Time `json:"due_at,omitempty"`
	AssignedTo        string     `json:"assigned_to,omitempty"`
	EntityType        string     `json:"entity_type"`
	EntityID          string     `json:"entity_id"`
	WorkflowID        string     `json:"workflow_id,omitempty"`
	CreatedBy         string     `json:"created_by"`
	OverdueNotifiedAt *time.Time `json:"overdue_notified_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (t *Task) Ref() EntityRef {
	return EntityRef{Type: TaskEntityType, ID: t.ID, TenantID: t.TenantID}
}

// Get exposes the task fields workflows may reference.
func (t *Task) Get(path string) (any, bool) {
	switch path {
	case "id":
		return t.ID, true
	case "subject":
		return t.Subject, true
	case "description":
		return t.Description, true
	case "status":
		return string(t.Status), true
	case "assigned_to":
		return t.AssignedTo, t.AssignedTo != ""
	case "due_at":
		if t.DueAt == nil {
			return nil, false
		}

		return t.DueAt.Format(time.RFC3339), true
	case "entity_type":
		return t.EntityType, true
	case "entity_id":
		return t.EntityID, true
	case "workflow_id":
		return t.WorkflowID, t.WorkflowID != ""
	case "created_by":
		return t.CreatedBy, true
	default:
		return nil, false
	}
}

// IsOverdue reports whether an open task is past its due date.
// Set writes the task fields workflows are allowed to change.
func (t *Task) Set(field string, value any) error {
	text := fmt.Sprint(value)
	if value == nil {
		text = ""
	}

	switch field {
	case "subject":
		t.Subject = text
	case "description":
		t.Description = text
	case "assigned_to":
		t.AssignedTo = text
	case "status":
		status := TaskStatus(text)
		if status != TaskStatusOpen && status != TaskStatusCompleted {
			return fmt.Errorf("%w: invalid task status %q", ErrFieldNotWritable, text)
		}

		t.Status = status
	default:
		return fmt.Errorf("%w: task.%s", ErrFieldNotWritable, field)
	}

	return nil
}

func (t *Task) Clone() MutableEntity {
	clone := *t

	return &clone
}

func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status != TaskStatusCompleted && t.DueAt != nil && t.DueAt.Before(now)
}

package models

import "time"

const DefaultNotificationChannel = "in_app"

type Notification struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	WorkflowID string    `json:"workflow_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Recipient  string    `json:"recipient,omitempty"`
	Channel    string    `json:"channel"`
	Subject    string    `json:"subject,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

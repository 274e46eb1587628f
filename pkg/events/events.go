// Package events defines the messages crmflow services exchange over the event bus.
package events

import (
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

const Topic = "crmflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"
const TenantMetadataKey = "tenant_id"

const (
	// NotificationRequestedEvent is published by workflows whose send_notification
	// action delegates delivery to the notifier service.
	NotificationRequestedEvent EventType = "notification.requested"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id"`
}

func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
	}
}

type NotificationRequested struct {
	BaseEvent

	Notification models.Notification `json:"notification"`
}

func (n NotificationRequested) GetType() EventType {
	return NotificationRequestedEvent
}

func NewNotificationRequested(notification *models.Notification) *NotificationRequested {
	return &NotificationRequested{
		BaseEvent:    NewBaseEvent(NotificationRequestedEvent, notification.TenantID),
		Notification: *notification,
	}
}

// New returns an empty event of the given type to decode a payload into, and
// false for types this package does not know.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case NotificationRequestedEvent:
		return &NotificationRequested{}, true
	default:
		return nil, false
	}
}

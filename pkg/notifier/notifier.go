// Package notifier delivers the notifications requested by send_notification actions.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/events"
	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/protocol"
)

var ErrNotificationNil = errors.New("notification is nil")

// Store keeps notifications in the notification repository, where the CRM
// reads them back per entity.
type Store struct {
	notifications persistence.NotificationRepository
	logger        *slog.Logger
}

func NewStore(notifications persistence.NotificationRepository, logger *slog.Logger) *Store {
	return &Store{
		notifications: notifications,
		logger:        logger.With("module", "notifier", "notifier", "store"),
	}
}

func (s *Store) Notify(ctx context.Context, notification *models.Notification) error {
	if notification == nil {
		return ErrNotificationNil
	}

	if err := persistence.EnsureID(&notification.ID); err != nil {
		return err
	}

	if err := s.notifications.Save(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	s.logger.InfoContext(ctx, "Notification stored",
		"notification_id", notification.ID,
		"tenant_id", notification.TenantID,
		"channel", notification.Channel,
		"recipient", notification.Recipient)

	return nil
}

// Publisher hands notifications to the event bus as notification.requested
// events; a crmflow-notifier consumer delivers them.
type Publisher struct {
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func NewPublisher(publisher eventbus.EventPublisher, logger *slog.Logger) *Publisher {
	return &Publisher{
		publisher: publisher,
		logger:    logger.With("module", "notifier", "notifier", "eventbus"),
	}
}

func (p *Publisher) Notify(ctx context.Context, notification *models.Notification) error {
	if notification == nil {
		return ErrNotificationNil
	}

	if err := persistence.EnsureID(&notification.ID); err != nil {
		return err
	}

	event := events.NewNotificationRequested(notification)

	if err := p.publisher.Publish(ctx, notification.TenantID, event); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	p.logger.DebugContext(ctx, "Notification published", "notification_id", notification.ID, "event_id", event.ID)

	return nil
}

// Consume registers a handler on bus that passes every requested notification to target.
func Consume(bus eventbus.EventSubscriber, target protocol.Notifier) error {
	return bus.Handle(events.NotificationRequestedEvent, func(ctx context.Context, event any) error {
		requested, ok := event.(*events.NotificationRequested)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}

		notification := requested.Notification

		return target.Notify(ctx, &notification)
	})
}

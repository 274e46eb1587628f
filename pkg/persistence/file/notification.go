package file

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// NotificationRepository stores notifications under notifications/<tenant>/<id>.json.
type NotificationRepository struct {
	store *store
}

func (nr *NotificationRepository) ListByEntity(_ context.Context, ref models.EntityRef) ([]*models.Notification, error) {
	notifications, err := readAll[models.Notification](nr.store, "notifications", ref.TenantID)
	if err != nil {
		return nil, err
	}

	notifications = slices.DeleteFunc(notifications, func(notification *models.Notification) bool {
		return notification.EntityType != ref.Type || notification.EntityID != ref.ID
	})

	slices.SortStableFunc(notifications, func(a, b *models.Notification) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return notifications, nil
}

func (nr *NotificationRepository) Save(_ context.Context, notification *models.Notification) error {
	if notification.TenantID == "" {
		return fmt.Errorf("%w: notification needs a tenant", persistence.ErrMissingIdentifier)
	}

	err := persistence.EnsureID(&notification.ID)
	if err != nil {
		return err
	}

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	return nr.store.write(notification, "notifications", notification.TenantID, notification.ID)
}

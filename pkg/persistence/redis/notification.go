package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

type NotificationRepository struct {
	client *backend.Client
	keys   keys
}

func (r *NotificationRepository) ListByEntity(ctx context.Context, ref models.EntityRef) ([]*models.Notification, error) {
	ids, err := r.client.ZRange(ctx, r.keys.entityNotifications(ref.TenantID, ref.Type, ref.ID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications of %s: %w", ref, err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.keys.notification(ref.TenantID, id))
	}

	return loadMany[models.Notification](ctx, r.client, keys)
}

func (r *NotificationRepository) Save(ctx context.Context, notification *models.Notification) error {
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

	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.keys.notification(notification.TenantID, notification.ID), data, 0)
	pipe.ZAdd(ctx, r.keys.entityNotifications(notification.TenantID, notification.EntityType, notification.EntityID), backend.Z{
		Score:  score(notification.CreatedAt),
		Member: notification.ID,
	})

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	return nil
}

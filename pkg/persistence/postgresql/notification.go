package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

type NotificationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *NotificationRepository) ListByEntity(ctx context.Context, ref models.EntityRef) ([]*models.Notification, error) {
	query := `
		SELECT id, tenant_id, workflow_id, entity_type, entity_id, recipient, channel, subject, message, created_at
		FROM notifications
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, ref.TenantID, ref.Type, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	notifications := make([]*models.Notification, 0)

	for rows.Next() {
		var notification models.Notification

		err := rows.Scan(
			&notification.ID,
			&notification.TenantID,
			&notification.WorkflowID,
			&notification.EntityType,
			&notification.EntityID,
			&notification.Recipient,
			&notification.Channel,
			&notification.Subject,
			&notification.Message,
			&notification.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		notifications = append(notifications, &notification)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
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

	query := `
		INSERT INTO notifications (id, tenant_id, workflow_id, entity_type, entity_id,
recipient, channel, subject, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		notification.ID,
		notification.TenantID,
		notification.WorkflowID,
		notification.EntityType,
		notification.EntityID,
		notification.Recipient,
		notification.Channel,
		notification.Subject,
		notification.Message,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	return nil
}

package protocol

import (
	"context"

	"github.com/dukex/crmflow/pkg/models"
)

type TaskCreator interface {
	CreateTask(ctx context.Context, task *models.Task) error
}

// EntityUpdater persists a single field change of an entity and announces the update.
type EntityUpdater interface {
	UpdateField(ctx context.Context, entity models.Entity, field string, value any) error
}

type Notifier interface {
	Notify(ctx context.Context, notification *models.Notification) error
}

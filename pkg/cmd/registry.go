package cmd

import (
	"log/slog"

	"github.com/dukex/crmflow/pkg/actions/createtask"
	"github.com/dukex/crmflow/pkg/actions/notification"
	"github.com/dukex/crmflow/pkg/actions/updatefield"
	"github.com/dukex/crmflow/pkg/protocol"
	"github.com/dukex/crmflow/pkg/registry"
)

// NewRegistry registers the built-in actions bound to their collaborators.
func NewRegistry(
	logger *slog.Logger,
	tasks protocol.TaskCreator,
	updater protocol.EntityUpdater,
	notifier protocol.Notifier,
) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(createtask.NewAction(tasks))
	reg.RegisterAction(updatefield.NewAction(updater))
	reg.RegisterAction(notification.NewAction(notifier))

	return reg
}

package main

import (
	"context"

	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/notifier"
	"github.com/dukex/crmflow/pkg/protocol"
)

// Run delivers requested notifications to target until ctx is cancelled.
func Run(ctx context.Context, bus eventbus.EventSubscriber, target protocol.Notifier) error {
	err := notifier.Consume(bus, target)
	if err != nil {
		return err
	}

	err = bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	<-ctx.Done()

	return nil
}

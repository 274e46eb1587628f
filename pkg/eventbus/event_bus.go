// Package eventbus moves crmflow events between services over watermill.
package eventbus

import (
	"context"

	"github.com/dukex/crmflow/pkg/events"
)

// Event is anything that knows its own type, the key handlers are registered by.
type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	// Publish sends event partitioned by key, usually the tenant id.
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	// Subscribe starts delivery to the registered handlers and returns once the
	// subscription is established.
	Subscribe(ctx context.Context) error
}

// EventHandler receives the decoded event, a pointer to the type events.New returns.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

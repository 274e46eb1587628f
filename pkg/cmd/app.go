package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/crmflow/pkg/eventbus"
	"github.com/dukex/crmflow/pkg/metrics"
	"github.com/dukex/crmflow/pkg/notifier"
	"github.com/dukex/crmflow/pkg/otelhelper"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/protocol"
	"github.com/dukex/crmflow/pkg/registry"
	"github.com/dukex/crmflow/pkg/services"
	"github.com/dukex/crmflow/pkg/workflow"
)

const (
	NotifierStore    = "store"
	NotifierEventBus = "eventbus"
)

type Config struct {
	ServiceName      string
	DatabaseURL      string
	WorkflowCacheTTL time.Duration
	EventBus         string
	KafkaBrokers     string
	Notifier         string
	MaxDepth         int
}

// App holds the components every crmflow process shares.
type App struct {
	Persistence persistence.Persistence
	EventBus    eventbus.EventBus
	Registry    *registry.Registry
	Entities    *services.Entities
	Tasks       *services.Tasks
	Workflows   *services.Workflow
	Engine      *workflow.Engine
	Metrics     *metrics.Metrics

	shutdownTracer otelhelper.ShutdownFunc
	logger         *slog.Logger
}

// NewApp opens the store and wires services, actions and the workflow engine.
// The engine runs for every mutation announced by the entity and task services.
func NewApp(ctx context.Context, logger *slog.Logger, config Config) (*App, error) {
	store, err := NewPersistence(ctx, logger, config.DatabaseURL, config.WorkflowCacheTTL)
	if err != nil {
		return nil, err
	}

	tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, config.ServiceName)
	if err != nil {
		_ = store.Close(ctx)

		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	app := &App{
		Persistence:    store,
		Metrics:        metrics.New(),
		shutdownTracer: shutdownTracer,
		logger:         logger,
	}

	var target protocol.Notifier = notifier.NewStore(store.Notifications(), logger)

	if config.Notifier == NotifierEventBus {
		bus, err := NewEventBus(config.EventBus, config.KafkaBrokers, config.ServiceName, logger)
		if err != nil {
			_ = app.Close(ctx)

			return nil, err
		}

		app.EventBus = bus

		// gochannel messages never leave the process, so deliver them here.
		if config.EventBus == EventBusGoChannel || config.EventBus == "" {
			if err := notifier.Consume(bus, target); err != nil {
				_ = app.Close(ctx)

				return nil, err
			}

			if err := bus.Subscribe(ctx); err != nil {
				_ = app.Close(ctx)

				return nil, err
			}
		}

		target = notifier.NewPublisher(bus, logger)
	}

	app.Entities = services.NewEntities(store, logger)
	app.Tasks = services.NewTasks(store, app.Entities, logger)
	app.Registry = NewRegistry(logger, app.Tasks, app.Entities, target)
	app.Workflows = services.NewWorkflow(store, app.Registry, logger)

	app.Engine = workflow.NewEngine(
		store.Workflows(),
		workflow.NewDispatcher(app.Registry, logger, app.Metrics),
		logger,
		workflow.WithRunRepository(store.Runs()),
		workflow.WithMetrics(app.Metrics),
		workflow.WithTracer(tracer),
		workflow.WithMaxDepth(config.MaxDepth),
	)
	app.Entities.OnMutation(app.Engine.Process)

	return app, nil
}

func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.EventBus != nil {
		if err := a.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event bus: %w", err))
		}
	}

	if err := a.Persistence.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close persistence: %w", err))
	}

	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer: %w", err))
		}
	}

	return errors.Join(errs...)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/crmflow/pkg/cmd"
	"github.com/dukex/crmflow/pkg/log"
	"github.com/dukex/crmflow/pkg/scheduler"
	"github.com/dukex/crmflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort = 9091
	serviceName = "crmflow-api"
)

func main() {
	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Manage CRM workflows and run them on record changes",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file path, postgres:// or redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   cmd.EventBusGoChannel,
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "notifier",
				Usage:   "Notification delivery (store, eventbus)",
				Value:   cmd.NotifierStore,
				Sources: cli.EnvVars("NOTIFIER"),
			},
			&cli.DurationFlag{
				Name:    "workflow-cache-ttl",
				Usage:   "How long active workflow lookups are cached, 0 disables the cache. Workflow changes made by other processes are seen only after this delay",
				Value:   0,
				Sources: cli.EnvVars("WORKFLOW_CACHE_TTL"),
			},
			&cli.IntFlag{
				Name:    "max-depth",
				Usage:   "Maximum nested workflow runs started by workflow actions",
				Value:   workflow.DefaultMaxDepth,
				Sources: cli.EnvVars("MAX_DEPTH"),
			},
			&cli.StringFlag{
				Name:    "overdue-schedule",
				Usage:   "Cron expression of the overdue task sweep, empty disables it",
				Value:   scheduler.DefaultOverdueSchedule,
				Sources: cli.EnvVars("OVERDUE_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json, pretty)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing crmflow API")

	app, err := cmd.NewApp(ctx, logger, cmd.Config{
		ServiceName:      serviceName,
		DatabaseURL:      command.String("database-url"),
		WorkflowCacheTTL: command.Duration("workflow-cache-ttl"),
		EventBus:         command.String("event-bus"),
		KafkaBrokers:     command.String("kafka-brokers"),
		Notifier:         command.String("notifier"),
		MaxDepth:         command.Int("max-depth"),
	})
	if err != nil {
		return err
	}

	defer func() {
		if err := app.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to close application", "error", err)
		}
	}()

	if schedule := command.String("overdue-schedule"); schedule != "" {
		overdue, err := scheduler.NewOverdueScheduler(schedule, app.Tasks, logger)
		if err != nil {
			return err
		}

		if err := overdue.Start(ctx); err != nil {
			return err
		}

		defer func() {
			if err := overdue.Stop(context.WithoutCancel(ctx)); err != nil {
				logger.ErrorContext(ctx, "Failed to stop overdue scheduler", "error", err)
			}
		}()
	}

	return NewAPI(logger, app).Start(ctx, command.Int("port"))
}

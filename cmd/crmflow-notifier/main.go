// Package main provides the consumer that delivers notifications requested by workflows.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/crmflow/pkg/cmd"
	"github.com/dukex/crmflow/pkg/log"
	"github.com/dukex/crmflow/pkg/notifier"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "crmflow-notifier"

func main() {
	command := &cli.Command{
		Name:  serviceName,
		Usage: "Consume notification.requested events and store the notifications",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file path, postgres:// or redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   cmd.EventBusKafka,
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
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
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("notifier")

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"), 0)
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			bus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), serviceName, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			logger.InfoContext(ctx, "Consuming notification requests", "event_bus", command.String("event-bus"))

			return Run(ctx, bus, notifier.NewStore(store.Notifications(), logger))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}

// Package main provides the crmflow command line tool for workflow definition files
// and manual trigger events.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dukex/crmflow/pkg/cmd"
	"github.com/dukex/crmflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	err := NewCommand().Run(context.Background(), os.Args)
	if err != nil {
		slog.Error("crmflow failed", "error", err)
		os.Exit(1)
	}
}

func NewCommand() *cli.Command {
	return &cli.Command{
		Name:                  "crmflow",
		Usage:                 "Validate, import and fire CRM workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
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
		Commands: []*cli.Command{
			NewValidateCommand(),
			NewImportCommand(),
			NewFireCommand(),
		},
	}
}

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL for persistence (file path, postgres:// or redis://)",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

func fileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "YAML workflow definition file",
		Required: true,
	}
}

func setupLogger(command *cli.Command, action string) *slog.Logger {
	log.Setup(command.String("log-level"), command.String("log-format"))

	return log.WithModule("crmflow").With("action", action)
}

func openApp(ctx context.Context, command *cli.Command, logger *slog.Logger) (*cmd.App, error) {
	return cmd.NewApp(ctx, logger, cmd.Config{
		ServiceName: "crmflow",
		DatabaseURL: command.String("database-url"),
		Notifier:    cmd.NotifierStore,
	})
}

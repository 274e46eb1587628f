package main

import (
	"context"
	"fmt"

	"github.com/dukex/crmflow/pkg/config"
	"github.com/urfave/cli/v3"
)

func NewImportCommand() *cli.Command {
	return &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Validate and store every workflow of a definition file",
		Flags:   []cli.Flag{fileFlag(), databaseFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := setupLogger(command, "import")

			workflows, err := config.LoadWorkflows(command.String("file"))
			if err != nil {
				return err
			}

			app, err := openApp(ctx, command, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := app.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close application", "error", err)
				}
			}()

			err = app.Workflows.Import(ctx, workflows)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(command.Root().Writer, "Imported %d workflows\n", len(workflows))

			return nil
		},
	}
}

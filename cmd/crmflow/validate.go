package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/crmflow/pkg/cmd"
	"github.com/dukex/crmflow/pkg/config"
	"github.com/dukex/crmflow/pkg/services"
	"github.com/urfave/cli/v3"
)

var ErrInvalidWorkflows = errors.New("invalid workflows found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a workflow definition file without storing it",
		Flags:   []cli.Flag{fileFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := setupLogger(command, "validate")
			out := command.Root().Writer

			workflows, err := config.LoadWorkflows(command.String("file"))
			if err != nil {
				return err
			}

			// Action handlers only need their collaborators to execute, not to validate.
			registry := cmd.NewRegistry(logger, nil, nil, nil)
			workflowService := services.NewWorkflow(nil, registry, logger)

			invalid := 0

			for index, workflow := range workflows {
				err := workflowService.Validate(workflow)
				if err != nil {
					invalid++

					_, _ = fmt.Fprintf(out, "INVALID  #%d %s: %v\n", index, workflow.Name, err)

					continue
				}

				_, _ = fmt.Fprintf(out, "OK       #%d %s (%s)\n", index, workflow.Name, workflow.TriggerEvent)
			}

			_, _ = fmt.Fprintf(out, "\n%d valid, %d invalid\n", len(workflows)-invalid, invalid)

			if invalid > 0 {
				return fmt.Errorf("%w: %d", ErrInvalidWorkflows, invalid)
			}

			return nil
		},
	}
}

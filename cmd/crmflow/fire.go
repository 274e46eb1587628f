package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/urfave/cli/v3"
)

var ErrTenantRequired = errors.New("tenant is required")

func NewFireCommand() *cli.Command {
	return &cli.Command{
		Name:    "fire",
		Aliases: []string{"f"},
		Usage:   "Run the workflows bound to a trigger event against a stored record or task",
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.StringFlag{
				Name:     "tenant",
				Usage:    "Tenant owning the entity",
				Required: true,
				Sources:  cli.EnvVars("TENANT_ID"),
			},
			&cli.StringFlag{
				Name:     "event",
				Aliases:  []string{"e"},
				Usage:    "Trigger event, for example deal.updated",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "type",
				Usage:    "Entity type (deal, contact, task, ...)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Entity id",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "attributes",
				Usage: "JSON object used as the entity snapshot instead of the stored one",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := setupLogger(command, "fire")

			ref := models.EntityRef{
				Type:     command.String("type"),
				ID:       command.String("id"),
				TenantID: command.String("tenant"),
			}
			if ref.TenantID == "" {
				return ErrTenantRequired
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

			var entity models.Entity

			switch {
			case command.String("attributes") != "":
				attributes := map[string]any{}

				err := json.Unmarshal([]byte(command.String("attributes")), &attributes)
				if err != nil {
					return fmt.Errorf("invalid attributes: %w", err)
				}

				entity = &models.Record{Type: ref.Type, ID: ref.ID, TenantID: ref.TenantID, Attributes: attributes}
			case ref.Type == models.TaskEntityType:
				entity, err = app.Tasks.FetchByID(ctx, ref.TenantID, ref.ID)
			default:
				entity, err = app.Entities.Get(ctx, ref)
			}

			if err != nil {
				return err
			}

			runs := app.Engine.Run(ctx, command.String("event"), entity)
			if runs == nil {
				runs = []*models.WorkflowRun{}
			}

			encoder := json.NewEncoder(command.Root().Writer)
			encoder.SetIndent("", "  ")

			return encoder.Encode(runs)
		},
	}
}

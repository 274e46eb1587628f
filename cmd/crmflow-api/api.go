// Package main provides the crmflow API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/dukex/crmflow/pkg/cmd"
	"github.com/dukex/crmflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	app      *cmd.App
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, app *cmd.App) *API {
	return &API{
		logger:   logger,
		app:      app,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.app.Workflows,
		a.app.Entities,
		a.app.Tasks,
		a.app.Engine,
		a.validate,
		a.app.Registry,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("crmflow API")
	})

	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(a.app.Metrics.Handler()))

	web.RegisterRoutes(app, handlers)

	return app
}

// Start serves the API until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":" + strconv.Itoa(port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.InfoContext(ctx, "Shutting down crmflow API")

		err := app.ShutdownWithContext(context.WithoutCancel(ctx))
		if listenErr := <-errCh; listenErr != nil {
			err = errors.Join(err, listenErr)
		}

		return err
	}
}

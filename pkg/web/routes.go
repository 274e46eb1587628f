package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
)

var errInvalidJSON = errors.New("invalid JSON format")

// RegisterRoutes mounts the API on router. Everything but the action catalog is tenant scoped.
func RegisterRoutes(router fiber.Router, handlers *APIHandlers) {
	router.Get("/actions", handlers.ListActions)

	w := router.Group("/workflows", RequireTenant)
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/activate", handlers.ActivateWorkflow)
	w.Post("/:id/deactivate", handlers.DeactivateWorkflow)
	w.Get("/:id/runs", handlers.GetWorkflowRuns)

	r := router.Group("/records", RequireTenant)
	r.Post("/:type", handlers.CreateRecord)
	r.Get("/:type/:id", handlers.GetRecord)
	r.Patch("/:type/:id", handlers.UpdateRecord)
	r.Get("/:type/:id/tasks", handlers.GetRecordTasks)
	r.Get("/:type/:id/notifications", handlers.GetRecordNotifications)

	t := router.Group("/tasks", RequireTenant)
	t.Post("/:id/complete", handlers.CompleteTask)

	e := router.Group("/events", RequireTenant)
	e.Post("/", handlers.FireEvent)
}

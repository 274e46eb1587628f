// Package registry keeps the action handlers available to workflows, keyed by action type.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrActionNotRegistered = errors.New("action type not registered")
	ErrInvalidActionParams = errors.New("invalid action params")
)

type Registry struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	actions map[models.ActionType]protocol.Action
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger.With("module", "registry"),
		actions: make(map[models.ActionType]protocol.Action),
	}
}

// RegisterAction adds or replaces the handler for its action type.
func (r *Registry) RegisterAction(action protocol.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[action.Type()]; exists {
		r.logger.Warn("Replacing registered action", "action_type", action.Type())
	}

	r.actions[action.Type()] = action
}

// Action returns the handler registered for the type.
//
//nolint:ireturn // handlers are looked up by type
func (r *Registry) Action(actionType models.ActionType) (protocol.Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, ok := r.actions[actionType]

	return action, ok
}

func (r *Registry) ActionTypes() []models.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]models.ActionType, 0, len(r.actions))
	for actionType := range r.actions {
		types = append(types, actionType)
	}

	slices.Sort(types)

	return types
}

// ValidateAction checks an action definition against its handler's schema and rules.
func (r *Registry) ValidateAction(action models.Action) error {
	handler, ok := r.Action(action.Type)
	if !ok {
		return fmt.Errorf("%w: %q", ErrActionNotRegistered, action.Type)
	}

	params := action.Params
	if params == nil {
		params = map[string]any{}
	}

	if schema := handler.Schema(); schema != nil {
		result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(params))
		if err != nil {
			return fmt.Errorf("failed to validate %s params: %w", action.Type, err)
		}

		if !result.Valid() {
			details := make([]string, 0, len(result.Errors()))
			for _, resultErr := range result.Errors() {
				details = append(details, resultErr.String())
			}

			return fmt.Errorf("%w: %s: %s", ErrInvalidActionParams, action.Type, strings.Join(details, "; "))
		}
	}

	if err := handler.Validate(params); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidActionParams, action.Type, err)
	}

	return nil
}

func (r *Registry) HealthCheck() (string, bool) {
	types := r.ActionTypes()
	if len(types) == 0 {
		return "No actions registered", false
	}

	return fmt.Sprintf("%d actions registered", len(types)), true
}

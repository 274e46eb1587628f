package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// Verbs of the trigger events announced for entity mutations.
const (
	VerbCreated = "created"
	VerbUpdated = "updated"
	VerbOverdue = "overdue"
)

// MutationHook is told about every persisted entity mutation. Hooks run
// synchronously on the caller's context and must not fail the mutation.
type MutationHook func(ctx context.Context, triggerEvent string, entity models.Entity)

// Entities persists CRM record mutations and announces them as "<type>.created"
// and "<type>.updated" trigger events to the registered hooks.
type Entities struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	logger      *slog.Logger

	mu    sync.RWMutex
	hooks []MutationHook
}

func NewEntities(persistence persistence.Persistence, logger *slog.Logger) *Entities {
	return &Entities{
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "entity_service"),
	}
}

// OnMutation registers a hook called after each mutation is stored.
func (s *Entities) OnMutation(hook MutationHook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, hook)
}

// Announce hands a trigger event for the entity to every hook.
func (s *Entities) Announce(ctx context.Context, triggerEvent string, entity models.Entity) {
	s.mu.RLock()
	hooks := make([]MutationHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.RUnlock()

	s.logger.DebugContext(ctx, "Announcing entity mutation",
		"trigger_event", triggerEvent,
		"entity", entity.Ref().String())

	for _, hook := range hooks {
		hook(ctx, triggerEvent, entity)
	}
}

func (s *Entities) Get(ctx context.Context, ref models.EntityRef) (*models.Record, error) {
	record, err := s.persistence.Records().Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record: %w", err)
	}

	return record, nil
}

// Create stores a new record and announces "<type>.created".
func (s *Entities) Create(ctx context.Context, record *models.Record) (*models.Record, error) {
	if record == nil {
		return nil, ErrRecordNil
	}

	err := s.validate.Struct(record)
	if err != nil {
		return nil, NewValidationError("Create", "invalid_record", err.Error(), errors.Join(ErrInvalidRequest, err))
	}

	err = s.persistence.Records().Save(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	s.Announce(ctx, record.Ref().Event(VerbCreated), record)

	return record, nil
}

// Update merges attributes into a stored record and announces "<type>.updated".
func (s *Entities) Update(ctx context.Context, ref models.EntityRef, attributes map[string]any) (*models.Record, error) {
	record, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	record.Merge(attributes)

	err = s.persistence.Records().Save(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	s.Announce(ctx, record.Ref().Event(VerbUpdated), record)

	return record, nil
}

// UpdateField sets a single field on the entity, persists it and announces the update.
// The in-memory entity changes only once the write is stored, so later actions of the
// same workflow see the value and a failed save leaves the entity as it was.
func (s *Entities) UpdateField(ctx context.Context, entity models.Entity, field string, value any) error {
	var staged models.MutableEntity

	if cloner, ok := entity.(models.Cloner); ok {
		staged = cloner.Clone()

		err := staged.Set(field, value)
		if err != nil {
			return fmt.Errorf("failed to set %s: %w", field, err)
		}
	}

	var updated models.Entity

	switch target := entity.(type) {
	case *models.Record:
		record, _ := staged.(*models.Record)

		err := s.persistence.Records().Save(ctx, record)
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}

		*target = *record
		updated = target
	case *models.Task:
		task, _ := staged.(*models.Task)

		err := s.persistence.Tasks().Save(ctx, task)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		*target = *task
		updated = target
	default:
		record, err := s.Get(ctx, entity.Ref())
		if err != nil {
			return err
		}

		err = record.Set(field, value)
		if err != nil {
			return fmt.Errorf("failed to set %s: %w", field, err)
		}

		err = s.persistence.Records().Save(ctx, record)
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}

		if mutable, ok := entity.(models.MutableEntity); ok {
			err = mutable.Set(field, value)
			if err != nil {
				return fmt.Errorf("stored %s but failed to apply it: %w", field, err)
			}
		}

		updated = record
	}

	s.Announce(ctx, entity.Ref().Event(VerbUpdated), updated)

	return nil
}

// Notifications lists the notifications workflows produced for an entity.
func (s *Entities) Notifications(ctx context.Context, ref models.EntityRef) ([]*models.Notification, error) {
	notifications, err := s.persistence.Notifications().ListByEntity(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

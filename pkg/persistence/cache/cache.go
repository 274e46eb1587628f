// Package cache decorates a persistence layer with an in-process cache of the active
// workflow lookups the engine performs on every entity mutation.
package cache

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	c "github.com/patrickmn/go-cache"
)

// Persistence serves ActiveByTrigger from memory for ttl. Writes through the
// decorated workflow repository invalidate the tenant's entries; writes made by
// other processes are only seen once the entry expires.
type Persistence struct {
	persistence.Persistence

	workflows *WorkflowRepository
}

func NewPersistence(inner persistence.Persistence, ttl time.Duration) *Persistence {
	return &Persistence{
		Persistence: inner,
		workflows: &WorkflowRepository{
			WorkflowRepository: inner.Workflows(),
			cache:              c.New(ttl, 2*ttl),
		},
	}
}

//nolint:ireturn // persistence.Persistence contract
func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflows
}

type WorkflowRepository struct {
	persistence.WorkflowRepository

	cache *c.Cache

	// generations counts invalidations per tenant. A lookup only fills the
	// cache when no invalidation happened while it read the inner store.
	mu          sync.Mutex
	generations map[string]uint64
}

func key(tenantID, triggerEvent string) string {
	return tenantID + "\x00" + triggerEvent
}

func (r *WorkflowRepository) ActiveByTrigger(ctx context.Context, tenantID, triggerEvent string) ([]*models.Workflow, error) {
	if cached, found := r.cache.Get(key(tenantID, triggerEvent)); found {
		workflows, _ := cached.([]*models.Workflow)

		return slices.Clone(workflows), nil
	}

	generation := r.generation(tenantID)

	workflows, err := r.WorkflowRepository.ActiveByTrigger(ctx, tenantID, triggerEvent)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.generations[tenantID] == generation {
		r.cache.SetDefault(key(tenantID, triggerEvent), workflows)
	}
	r.mu.Unlock()

	return slices.Clone(workflows), nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	err := r.WorkflowRepository.Save(ctx, workflow)

	r.invalidate(workflow.TenantID)

	return err //nolint:wrapcheck // decorator
}

func (r *WorkflowRepository) Delete(ctx context.Context, tenantID, id string) error {
	err := r.WorkflowRepository.Delete(ctx, tenantID, id)

	r.invalidate(tenantID)

	return err //nolint:wrapcheck // decorator
}

func (r *WorkflowRepository) generation(tenantID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.generations[tenantID]
}

func (r *WorkflowRepository) invalidate(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generations[tenantID]++

	prefix := tenantID + "\x00"

	for cached := range r.cache.Items() {
		if strings.HasPrefix(cached, prefix) {
			r.cache.Delete(cached)
		}
	}
}

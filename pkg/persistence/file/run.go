package file

import (
	"context"
	"fmt"
	"slices"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// RunRepository stores workflow runs under runs/<tenant>/<workflow>/<id>.json.
type RunRepository struct {
	store *store
}

func (rr *RunRepository) ListByWorkflow(_ context.Context, tenantID, workflowID string, limit int) ([]*models.WorkflowRun, error) {
	runs, err := readAll[models.WorkflowRun](rr.store, "runs", tenantID, workflowID)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(runs, func(a, b *models.WorkflowRun) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

func (rr *RunRepository) Save(_ context.Context, run *models.WorkflowRun) error {
	if run.TenantID == "" || run.WorkflowID == "" {
		return fmt.Errorf("%w: run needs tenant and workflow", persistence.ErrMissingIdentifier)
	}

	err := persistence.EnsureID(&run.ID)
	if err != nil {
		return err
	}

	return rr.store.write(run, "runs", run.TenantID, run.WorkflowID, run.ID)
}

package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// RecordRepository stores CRM records under records/<tenant>/<type>/<id>.json.
type RecordRepository struct {
	store *store
}

func (rr *RecordRepository) Get(_ context.Context, ref models.EntityRef) (*models.Record, error) {
	var record models.Record

	err := rr.store.read(&record, "records", ref.TenantID, ref.Type, ref.ID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrRecordNotFound, ref)
		}

		return nil, fmt.Errorf("failed to read record %s: %w", ref, err)
	}

	return &record, nil
}

func (rr *RecordRepository) Save(_ context.Context, record *models.Record) error {
	if record.TenantID == "" || record.Type == "" {
		return fmt.Errorf("%w: record needs tenant and type", persistence.ErrMissingIdentifier)
	}

	err := persistence.EnsureID(&record.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	record.UpdatedAt = now

	return rr.store.write(record, "records", record.TenantID, record.Type, record.ID)
}

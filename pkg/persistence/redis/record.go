package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

type RecordRepository struct {
	client *backend.Client
	keys   keys
}

func (r *RecordRepository) Get(ctx context.Context, ref models.EntityRef) (*models.Record, error) {
	var record models.Record

	err := load(ctx, r.client, r.keys.record(ref.TenantID, ref.Type, ref.ID), &record)
	if err != nil {
		if isNil(err) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrRecordNotFound, ref)
		}

		return nil, fmt.Errorf("failed to get record %s: %w", ref, err)
	}

	return &record, nil
}

func (r *RecordRepository) Save(ctx context.Context, record *models.Record) error {
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

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = r.client.Set(ctx, r.keys.record(record.TenantID, record.Type, record.ID), data, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", record.Ref(), err)
	}

	return nil
}

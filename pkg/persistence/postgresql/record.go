package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// RecordRepository stores CRM records with their attributes as JSONB.
type RecordRepository struct {
	db *sql.DB
}

func (r *RecordRepository) Get(ctx context.Context, ref models.EntityRef) (*models.Record, error) {
	query := `
		SELECT tenant_id, type, id, attributes, created_at, updated_at
		FROM records
		WHERE tenant_id = $1 AND type = $2 AND id = $3
	`

	var (
		record     models.Record
		attributes []byte
	)

	err := r.db.QueryRowContext(ctx, query, ref.TenantID, ref.Type, ref.ID).Scan(
		&record.TenantID,
		&record.Type,
		&record.ID,
		&attributes,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrRecordNotFound, ref)
		}

		return nil, fmt.Errorf("failed to query record %s: %w", ref, err)
	}

	err = json.Unmarshal(attributes, &record.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes of %s: %w", ref, err)
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

	attributes := record.Attributes
	if attributes == nil {
		attributes = map[string]any{}
	}

	attributesJSON, err := json.Marshal(attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	query := `
		INSERT INTO records (tenant_id, type, id, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, type, id) DO UPDATE SET
			attributes = EXCLUDED.attributes,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		record.TenantID, record.Type, record.ID, attributesJSON, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", record.Ref(), err)
	}

	return nil
}

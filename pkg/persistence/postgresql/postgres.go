// Package postgresql provides PostgreSQL persistence for workflows, records and workflow side effects.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db               *sql.DB
	logger           *slog.Logger
	workflowRepo     *WorkflowRepository
	recordRepo       *RecordRepository
	taskRepo         *TaskRepository
	notificationRepo *NotificationRepository
	runRepo          *RunRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger = logger.With("module", "postgresql")

	postgres := &Persistence{
		db:               database,
		logger:           logger,
		workflowRepo:     &WorkflowRepository{db: database, logger: logger},
		recordRepo:       &RecordRepository{db: database},
		taskRepo:         &TaskRepository{db: database, logger: logger},
		notificationRepo: &NotificationRepository{db: database, logger: logger},
		runRepo:          &RunRepository{db: database, logger: logger},
	}

	// Run migrations on initialization
	err = sqlbase.NewMigrationManager(logger, database, migrations()).RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

//nolint:ireturn // persistence.Persistence contract
func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflowRepo
}

//nolint:ireturn // persistence.Persistence contract
func (p *Persistence) Records() persistence.RecordRepository {
	return p.recordRepo
}

//nolint:ireturn // persistence.Persistence contract
func (p *Persistence) Tasks() persistence.TaskRepository {
	return p.taskRepo
}

//nolint:ireturn // persistence.Persistence contract
func (p *Persistence) Notifications() persistence.NotificationRepository {
	return p.notificationRepo
}

//nolint:ireturn // persistence.Persistence contract
func (p *Persistence) Runs() persistence.RunRepository {
	return p.runRepo
}

type scanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

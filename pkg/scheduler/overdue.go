// Package scheduler runs the periodic jobs of crmflow.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultOverdueSchedule sweeps overdue tasks every five minutes.
const DefaultOverdueSchedule = "*/5 * * * *"

var ErrScheduleRequired = errors.New("overdue schedule cron expression is required")

// Sweeper fires task.overdue for every task that became overdue since the last sweep.
type Sweeper interface {
	FireOverdue(ctx context.Context) (int, error)
}

type OverdueScheduler struct {
	schedule string
	sweeper  Sweeper
	timeout  time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewOverdueScheduler(schedule string, sweeper Sweeper, logger *slog.Logger) (*OverdueScheduler, error) {
	if schedule == "" {
		return nil, ErrScheduleRequired
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	logger = logger.With("module", "overdue_scheduler", "schedule", schedule)

	return &OverdueScheduler{
		schedule: schedule,
		sweeper:  sweeper,
		timeout:  time.Minute,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{logger}),
			cron.Recover(cronLogger{logger}),
		)),
		logger: logger,
	}, nil
}

func (s *OverdueScheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.schedule, func() {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		_, _ = s.RunOnce(runCtx)
	})
	if err != nil {
		return fmt.Errorf("failed to add overdue sweep job: %w", err)
	}

	s.logger.Info("Starting overdue task sweeps", "job_id", id)
	s.cron.Start()

	return nil
}

// RunOnce sweeps immediately and reports how many tasks were announced overdue.
func (s *OverdueScheduler) RunOnce(ctx context.Context) (int, error) {
	fired, err := s.sweeper.FireOverdue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Overdue sweep failed", "error", err, "fired", fired)

		return fired, err
	}

	if fired > 0 {
		s.logger.InfoContext(ctx, "Overdue tasks announced", "fired", fired)
	}

	return fired, nil
}

// Stop prevents new sweeps and waits for a running one until ctx is done.
func (s *OverdueScheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping overdue task sweeps")

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to the logger interface of robfig/cron.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

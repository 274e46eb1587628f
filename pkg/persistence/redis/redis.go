// Package redis provides Redis persistence. Documents are stored as JSON strings and
// listed through sorted set indexes, so ordered reads never scan the keyspace.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/crmflow/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "crmflow:"

// Persistence implements persistence.Persistence on top of a Redis client.
type Persistence struct {
	client *backend.Client
	logger *slog.Logger
	keys   keys
}

type Option func(*Persistence)

// WithPrefix sets the prefix of every key written by the store.
func WithPrefix(prefix string) Option {
	return func(p *Persistence) {
		p.keys.prefix = prefix
	}
}

// NewPersistence connects to the Redis server addressed by a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, opts ...Option) (*Persistence, error) {
	options, err := backend.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	p := NewFromClient(logger, backend.NewClient(options), opts...)

	err = p.HealthCheck(ctx)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// NewFromClient creates the store from an existing client.
func NewFromClient(logger *slog.Logger, client *backend.Client, opts ...Option) *Persistence {
	p := &Persistence{
		client: client,
		logger: logger.With("module", "redis"),
		keys:   keys{prefix: defaultPrefix},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

//nolint:ireturn // persistence.Persistence contract
func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return &WorkflowRepository{client: p.client, keys: p.keys}
}

//nolint:ireturn // persistence.Persistence contract
func (p *Persistence) Records() persistence.RecordRepository {
	return &RecordRepository{client: p.client, keys: p.keys}
}

//nolint:ireturn // persistence.Persistence contract
func (p *Persistence) Tasks() persistence.TaskRepository {
	return &TaskRepository{client: p.client, keys: p.keys, logger: p.logger}
}

//nolint:ireturn // persistence.Persistence contract
func (p *Persistence) Notifications() persistence.NotificationRepository {
	return &NotificationRepository{client: p.client, keys: p.keys}
}

//nolint:ireturn // persistence.Persistence contract
func (p *Persistence) Runs() persistence.RunRepository {
	return &RunRepository{client: p.client, keys: p.keys}
}

type keys struct {
	prefix string
}

func (k keys) workflow(tenantID, id string) string {
	return fmt.Sprintf("%s%s:workflow:%s", k.prefix, tenantID, id)
}

func (k keys) workflowIndex(tenantID string) string {
	return fmt.Sprintf("%s%s:workflows", k.prefix, tenantID)
}

func (k keys) triggerIndex(tenantID, triggerEvent string) string {
	return fmt.Sprintf("%s%s:trigger:%s", k.prefix, tenantID, triggerEvent)
}

func (k keys) record(tenantID, entityType, id string) string {
	return fmt.Sprintf("%s%s:record:%s:%s", k.prefix, tenantID, entityType, id)
}

func (k keys) task(tenantID, id string) string {
	return fmt.Sprintf("%s%s:task:%s", k.prefix, tenantID, id)
}

func (k keys) entityTasks(tenantID, entityType, entityID string) string {
	return fmt.Sprintf("%s%s:tasks:%s:%s", k.prefix, tenantID, entityType, entityID)
}

// dueTasks indexes the keys of open tasks of every tenant by due date.
func (k keys) dueTasks() string {
	return k.prefix + "tasks:due"
}

func (k keys) notification(tenantID, id string) string {
	return fmt.Sprintf("%s%s:notification:%s", k.prefix, tenantID, id)
}

func (k keys) entityNotifications(tenantID, entityType, entityID string) string {
	return fmt.Sprintf("%s%s:notifications:%s:%s", k.prefix, tenantID, entityType, entityID)
}

func (k keys) run(tenantID, id string) string {
	return fmt.Sprintf("%s%s:run:%s", k.prefix, tenantID, id)
}

func (k keys) workflowRuns(tenantID, workflowID string) string {
	return fmt.Sprintf("%s%s:runs:%s", k.prefix, tenantID, workflowID)
}

// score orders index members by time. Equal scores fall back to member order.
func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

// load decodes the JSON document at key. It returns backend.Nil when missing.
func load(ctx context.Context, client *backend.Client, key string, out any) error {
	val, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return err //nolint:wrapcheck // callers match backend.Nil
	}

	err = json.Unmarshal(val, out)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return nil
}

// loadMany decodes the documents at keys, skipping the ones that no longer exist.
func loadMany[T any](ctx context.Context, client *backend.Client, keys []string) ([]*T, error) {
	items := make([]*T, 0, len(keys))
	if len(keys) == 0 {
		return items, nil
	}

	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	for index, value := range values {
		text, ok := value.(string)
		if !ok {
			continue
		}

		var item T

		err := json.Unmarshal([]byte(text), &item)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", keys[index], err)
		}

		items = append(items, &item)
	}

	return items, nil
}

func isNil(err error) bool {
	return errors.Is(err, backend.Nil)
}

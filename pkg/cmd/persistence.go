// Package cmd wires the crmflow components for the command line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/persistence/cache"
	"github.com/dukex/crmflow/pkg/persistence/file"
	"github.com/dukex/crmflow/pkg/persistence/postgresql"
	"github.com/dukex/crmflow/pkg/persistence/redis"
)

// PersistenceProvider picks the store for a database URL by its scheme. URLs
// without a known scheme are file store directories.
func PersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	case "redis", "rediss":
		return "redis"
	default:
		return "file"
	}
}

// NewPersistence opens the store addressed by databaseURL. A positive cacheTTL
// caches active workflow lookups in process for that long.
//
//nolint:ireturn // the store is chosen at runtime
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, cacheTTL time.Duration) (persistence.Persistence, error) {
	var (
		store persistence.Persistence
		err   error
	)

	provider := PersistenceProvider(databaseURL)

	switch provider {
	case "postgresql":
		store, err = postgresql.NewPersistence(ctx, logger, databaseURL)
	case "redis":
		store, err = redis.NewPersistence(ctx, logger, databaseURL)
	default:
		store = file.NewPersistence(databaseURL)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open %s persistence: %w", provider, err)
	}

	logger.InfoContext(ctx, "Persistence ready", "provider", provider, "workflow_cache_ttl", cacheTTL)

	if cacheTTL > 0 {
		return cache.NewPersistence(store, cacheTTL), nil
	}

	return store, nil
}

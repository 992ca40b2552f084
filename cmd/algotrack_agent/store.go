package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/errorterry/algotrack-agent/internal/config"
	"github.com/errorterry/algotrack-agent/internal/kvstore"
)

// openStore builds the key/value store named by the config. An empty
// driver falls back to the in-memory store, which loses state on exit.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (kvstore.Store, error) {
	switch cfg.StoreDriver {
	case "", config.StoreMemory:
		logger.Debug("using in-memory store, state will not survive restarts")
		return kvstore.NewMemory(), nil
	case config.StoreSQLite:
		return kvstore.OpenSQLite(ctx, cfg.StorePath)
	case config.StorePostgres:
		return kvstore.OpenPostgres(ctx, cfg.DatabaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

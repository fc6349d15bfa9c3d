package main

import (
	"context"
	"fmt"

	"status-relay/src/config"
	"status-relay/src/logger"
	"status-relay/src/pipeline"
	"status-relay/src/store"
)

// requirePersistentStore opens the Postgres delivery log for commands that run
// outside the serve process.
func requirePersistentStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required: the in-memory delivery log only lives inside 'relay serve'")
	}
	return pipeline.OpenStore(ctx, cfg, log)
}

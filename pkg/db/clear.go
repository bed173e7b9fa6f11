package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearMappings removes every domain mapping. The schema is preserved.
func ClearMappings(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing domain mappings", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE domain_mappings`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Domain mappings cleared", clearLogPrefix))
	return nil
}

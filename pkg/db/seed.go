package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/agent-router/pkg/mapping"
)

const seedLogPrefix = "db:seed"

// SeedFromMappingFile upserts every domain in the mapping file at path. An
// empty path falls back to the mapping loader's search order.
func SeedFromMappingFile(ctx context.Context, pool *pgxpool.Pool, path string) error {
	cfg, err := mapping.LoadMappingConfig(path)
	if err != nil {
		return fmt.Errorf("%s - load mapping config: %w", seedLogPrefix, err)
	}
	return SeedMappings(ctx, NewRepository(pool), mapping.EntriesFromConfig(cfg))
}

// SeedMappings upserts the given entries.
func SeedMappings(ctx context.Context, repo *Repository, entries []mapping.Entry) error {
	for _, e := range entries {
		if _, err := repo.UpsertDomainMapping(ctx, UpsertDomainMappingParams{
			Domain:         e.Domain,
			PrimaryType:    e.Primary,
			SuggestedTypes: e.Suggested,
			UserID:         "seed",
		}); err != nil {
			return fmt.Errorf("%s - upsert %s: %w", seedLogPrefix, e.Domain, err)
		}
	}
	slog.Info(fmt.Sprintf("%s - Seeded %d domain mappings", seedLogPrefix, len(entries)))
	return nil
}

// ToMappingEntries converts rows into mapping table entries.
func ToMappingEntries(rows []DomainMapping) []mapping.Entry {
	entries := make([]mapping.Entry, 0, len(rows))
	for _, r := range rows {
		e := mapping.Entry{Domain: r.Domain, Suggested: r.SuggestedTypes}
		if r.PrimaryType != nil {
			e.Primary = *r.PrimaryType
		}
		entries = append(entries, e)
	}
	return entries
}

// LoadMappingTable reads all rows and replaces the table contents.
func LoadMappingTable(ctx context.Context, repo *Repository, table *mapping.Table) error {
	rows, err := repo.ListDomainMappings(ctx)
	if err != nil {
		return err
	}
	table.Replace(ToMappingEntries(rows))
	slog.Debug(fmt.Sprintf("%s - Loaded %d domain mappings from database", seedLogPrefix, len(rows)))
	return nil
}

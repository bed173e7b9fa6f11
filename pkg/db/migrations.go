package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationsLogPrefix = "db:migrations"

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migration is one .sql file from the migrations directory. Name is the file
// name and orders migrations.
type Migration struct {
	Name string
	SQL  string
}

// LoadMigrations reads all .sql files in dir, sorted by file name.
func LoadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migration dir %s: %w", migrationsLogPrefix, dir, err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".sql") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", migrationsLogPrefix, path, err)
		}
		out = append(out, Migration{Name: e.Name(), SQL: string(data)})
	}
	slices.SortFunc(out, func(a, b Migration) int { return strings.Compare(a.Name, b.Name) })

	slog.Info(fmt.Sprintf("%s - Loaded %d migration files from %s", migrationsLogPrefix, len(out), dir))
	return out, nil
}

// PendingMigrations returns the migrations whose names are not in applied,
// keeping their order.
func PendingMigrations(all []Migration, applied []string) []Migration {
	var pending []Migration
	for _, m := range all {
		if !slices.Contains(applied, m.Name) {
			pending = append(pending, m)
		}
	}
	return pending
}

// AppliedMigrations lists recorded migration names in the order applied.
func AppliedMigrations(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	if _, err := pool.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("%s - create schema_migrations: %w", migrationsLogPrefix, err)
	}
	rows, err := pool.Query(ctx, `SELECT name FROM schema_migrations ORDER BY applied_at, name`)
	if err != nil {
		return nil, fmt.Errorf("%s - list applied migrations: %w", migrationsLogPrefix, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s - scan applied migrations: %w", migrationsLogPrefix, err)
	}
	return names, nil
}

// RunMigrations applies pending migrations in order. Each migration runs in
// its own transaction together with its schema_migrations record.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) error {
	applied, err := AppliedMigrations(ctx, pool)
	if err != nil {
		return err
	}
	pending := PendingMigrations(migrations, applied)
	slog.Info(fmt.Sprintf("%s - %d of %d migrations pending", migrationsLogPrefix, len(pending), len(migrations)))

	for _, m := range pending {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%s - migration %s failed: %w", migrationsLogPrefix, m.Name, err)
		}
		slog.Info(fmt.Sprintf("%s - Applied %s", migrationsLogPrefix, m.Name))
	}
	return nil
}

// MigrationStatus prints each migration file in migrationPath as applied or pending.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrationPath string) error {
	all, err := LoadMigrations(migrationPath)
	if err != nil {
		return err
	}
	applied, err := AppliedMigrations(ctx, pool)
	if err != nil {
		return err
	}
	pending := PendingMigrations(all, applied)

	fmt.Printf("Migrations in %s: %d applied, %d pending\n", migrationPath, len(all)-len(pending), len(pending))
	for _, m := range all {
		state := "applied"
		if slices.ContainsFunc(pending, func(p Migration) bool { return p.Name == m.Name }) {
			state = "pending"
		}
		fmt.Printf("  %-8s %s\n", state, m.Name)
	}
	if len(pending) > 0 {
		fmt.Println("Run 'router migrate up' to apply pending migrations.")
	}
	return nil
}

// MigrationDown reports the last applied migration. Migrations are
// forward-only, so nothing is rolled back.
func MigrationDown(ctx context.Context, pool *pgxpool.Pool, _ string) error {
	applied, err := AppliedMigrations(ctx, pool)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Println("Migration down: no migrations applied.")
		return nil
	}
	fmt.Printf("Migration down: not supported (migrations are forward-only). Last applied: %s. Use a database backup to roll back.\n", applied[len(applied)-1])
	return nil
}

// Package main is the entrypoint for the agent router (binary name "router").
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/agent-router/internal/config"
	"github.com/morezero/agent-router/internal/server"
	"github.com/morezero/agent-router/pkg/commsutil"
	"github.com/morezero/agent-router/pkg/db"
	"github.com/morezero/agent-router/pkg/discovery"
	"github.com/morezero/agent-router/pkg/dispatcher"
	"github.com/morezero/agent-router/pkg/router"
)

const usage = `Usage: router [command]
       router serve                       Start the router (COMMS, HTTP, routing API).
       router migrate up                  Run database migrations.
       router migrate down                Roll back one migration (not supported; migrations are forward-only).
       router migrate status              Show migration status.
       router ensure-db [name]            Create database if missing (default name: router_test). Uses DATABASE_URL host/user.
       router clear                       Remove all domain mappings; schema is preserved.
       router seed [file]                 Upsert domain mappings from a mapping file.
       router mappings [domain]           Print stored domain mappings as JSON.
       router unmap <domain>              Delete one stored domain mapping.
       router route <domain> [objective]  Send a route request over COMMS and print the reply.

Commands:
  serve            (default) Start the agent router.
  migrate up       Run database migrations only.
  migrate down     Roll back last migration (reports forward-only).
  migrate status   Show current migration status.
  ensure-db [name] Create database (e.g. router_test) on same host as DATABASE_URL; then run tests with that URL.
  clear            Truncate domain_mappings.
  seed [file]      Seed domain mappings (default: ROUTER_MAPPING_FILE, then config/mappings.json).
  mappings         List stored mappings, or show one domain.
  unmap            Remove a domain from the mapping table.
  route            Ask a running router to pick an agent.

Environment: DATABASE_URL, USE_DATABASE, MIGRATION_PATH, ROUTER_MAPPING_FILE, COMMS_URL, ROUTER_SUBJECT, HTTP_PORT.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("router migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := withPool(runMigrateUp); err != nil {
				log.Fatalf("router migrate up: %v", err)
			}
		case "status":
			if err := withPool(runMigrateStatus); err != nil {
				log.Fatalf("router migrate status: %v", err)
			}
		case "down":
			if err := withPool(runMigrateDown); err != nil {
				log.Fatalf("router migrate down: %v", err)
			}
		default:
			log.Fatalf("router migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "clear":
		if err := withPool(runClear); err != nil {
			log.Fatalf("router clear: %v", err)
		}
		return
	case "seed":
		file := ""
		if len(args) > 1 {
			file = args[1]
		}
		if err := withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
			return runSeed(ctx, cfg, pool, file)
		}); err != nil {
			log.Fatalf("router seed: %v", err)
		}
		return
	case "mappings":
		domain := ""
		if len(args) > 1 {
			domain = args[1]
		}
		if err := withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
			return runMappings(ctx, db.NewRepository(pool), domain)
		}); err != nil {
			log.Fatalf("router mappings: %v", err)
		}
		return
	case "unmap":
		if len(args) < 2 || args[1] == "" {
			log.Fatalf("router unmap: require a domain")
		}
		if err := withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
			return runUnmap(ctx, db.NewRepository(pool), args[1])
		}); err != nil {
			log.Fatalf("router unmap: %v", err)
		}
		return
	case "ensure-db":
		dbName := "router_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("router ensure-db: %v", err)
		}
		return
	case "route":
		if len(args) < 2 {
			log.Fatalf("router route: require a domain")
		}
		objective := ""
		if len(args) > 2 {
			objective = args[2]
		}
		if err := runRoute(args[1], objective); err != nil {
			log.Fatalf("router route: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("router: %v", err)
	}
}

// withPool loads config, opens a database pool and runs fn with it.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func runMigrateUp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	return db.MigrationStatus(ctx, pool, cfg.MigrationPath)
}

func runMigrateDown(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	return db.MigrationDown(ctx, pool, cfg.MigrationPath)
}

func runClear(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
	if err := db.ClearMappings(ctx, pool); err != nil {
		return err
	}
	fmt.Println("Domain mappings cleared.")
	return nil
}

func runSeed(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, file string) error {
	if file == "" {
		file = cfg.MappingFile
	}
	return db.SeedFromMappingFile(ctx, pool, file)
}

func runMappings(ctx context.Context, repo *db.Repository, domain string) error {
	var v any
	if domain == "" {
		rows, err := repo.ListDomainMappings(ctx)
		if err != nil {
			return err
		}
		v = rows
	} else {
		m, err := repo.GetDomainMapping(ctx, domain)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("domain %q has no mapping", domain)
		}
		v = m
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runUnmap(ctx context.Context, repo *db.Repository, domain string) error {
	deleted, err := repo.DeleteDomainMapping(ctx, domain)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("domain %q has no mapping", domain)
	}
	fmt.Printf("Mapping for %q deleted.\n", domain)
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	targetURL, err := databaseURLFor(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	created, err := db.EnsureDatabase(context.Background(), targetURL)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Database %q created.\n", dbName)
	} else {
		fmt.Printf("Database %q already exists.\n", dbName)
	}
	return nil
}

// databaseURLFor swaps the database name in dbURL, keeping host, user and query.
func databaseURLFor(dbURL, dbName string) (string, error) {
	if dbURL == "" {
		return "", fmt.Errorf("DATABASE_URL is required")
	}
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + dbName
	return u.String(), nil
}

func runRoute(domain, objective string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName+"-cli")
	if err != nil {
		return err
	}
	defer nc.Close()

	req, err := buildRouteRequest(domain, objective)
	if err != nil {
		return err
	}
	subject := cfg.RouterSubject
	if subject == "" {
		subject = commsutil.SubjectRoute
	}

	var resp dispatcher.RouterResponse
	if err := commsutil.Request(nc, subject, req, &resp, cfg.RequestTimeout); err != nil {
		return err
	}
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func buildRouteRequest(domain, objective string) (*dispatcher.RouterRequest, error) {
	input := router.RouteInput{Domain: domain}
	if objective != "" {
		input.Properties = map[string]any{discovery.PropObjective: objective}
	}
	params, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return &dispatcher.RouterRequest{
		ID:     uuid.NewString(),
		Type:   "invoke",
		Method: "route",
		Params: params,
	}, nil
}

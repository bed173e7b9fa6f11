// Package server orchestrates all components: COMMS client, optional DB,
// router, dispatcher, maintenance loops and HTTP endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/morezero/agent-router/internal/config"
	"github.com/morezero/agent-router/pkg/commsutil"
	"github.com/morezero/agent-router/pkg/db"
	"github.com/morezero/agent-router/pkg/dispatcher"
	"github.com/morezero/agent-router/pkg/events"
	"github.com/morezero/agent-router/pkg/mapping"
	"github.com/morezero/agent-router/pkg/metrics"
	"github.com/morezero/agent-router/pkg/pool"
	"github.com/morezero/agent-router/pkg/router"
)

const logPrefix = "server:server"

// Server is the agent-router orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	dbPool     *pgxpool.Pool
	httpServer *http.Server
	router     *router.Router
	disp       *dispatcher.Dispatcher
	promReg    *prometheus.Registry
	subs       []*comms.Subscription
}

// Run starts the server, blocks until a shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting agent-router", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg}
	defer s.close()

	// Step 1: Database (optional) and mapping table
	var repo *db.Repository
	if cfg.UseDatabase {
		dbPool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.dbPool = dbPool
		if cfg.RunMigrations {
			if err := migrateAndSeed(ctx, dbPool, cfg); err != nil {
				return err
			}
		}
		repo = db.NewRepository(dbPool)
	}

	table, err := loadMappingTable(ctx, cfg, repo)
	if err != nil {
		return err
	}

	// Step 2: COMMS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	s.nc = nc

	// Step 3: Router
	s.promReg = newPrometheusRegistry()
	r, err := router.NewRouter(router.NewRouterParams{
		Mapping:   table,
		Pool:      pool.New(cfg.HeartbeatTTL),
		Publisher: events.NewCommsPublisher(nc, &events.CommsPublisherOpts{RoutedSubject: cfg.RoutedEventSubject}),
		Repo:      repo,
		Metrics:   metrics.MustNewMetrics(s.promReg),
	})
	if err != nil {
		return fmt.Errorf("%s - failed to create router: %w", logPrefix, err)
	}
	s.router = r
	s.disp = dispatcher.NewDispatcher(r)

	// Step 4: Subscriptions
	if err := s.subscribe(ctx); err != nil {
		return err
	}

	// Step 5: Maintenance loops
	go s.runSweeper(ctx)
	if repo != nil {
		go s.runMappingRefresh(ctx)
	}

	// Step 6: HTTP
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	s.httpServer = &http.Server{Addr: httpAddr, Handler: s.routes(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - agent-router is ready", logPrefix))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HealthCheckTimeout)
	defer shutdownCancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
	}
	cancel()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// close releases subscriptions and connections in reverse start order.
func (s *Server) close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	if s.nc != nil {
		_ = s.nc.Drain()
	}
	if s.dbPool != nil {
		s.dbPool.Close()
	}
}

func migrateAndSeed(ctx context.Context, dbPool *pgxpool.Pool, cfg *config.Config) error {
	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
	}
	if err := db.RunMigrations(ctx, dbPool, migrations); err != nil {
		return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
	}
	repo := db.NewRepository(dbPool)
	existing, err := repo.ListDomainMappings(ctx)
	if err != nil {
		return fmt.Errorf("%s - failed to list mappings: %w", logPrefix, err)
	}
	if len(existing) > 0 {
		return nil
	}
	if err := db.SeedFromMappingFile(ctx, dbPool, cfg.MappingFile); err != nil {
		return fmt.Errorf("%s - failed to seed mappings: %w", logPrefix, err)
	}
	return nil
}

// loadMappingTable builds the table from the database when one is
// configured, otherwise from the mapping file search order.
func loadMappingTable(ctx context.Context, cfg *config.Config, repo *db.Repository) (*mapping.Table, error) {
	if repo != nil {
		table := mapping.NewTable(nil)
		if err := db.LoadMappingTable(ctx, repo, table); err != nil {
			return nil, fmt.Errorf("%s - failed to load mappings from database: %w", logPrefix, err)
		}
		slog.Info(fmt.Sprintf("%s - Loaded %d domain mappings from database", logPrefix, table.Len()))
		return table, nil
	}

	mc, err := mapping.LoadMappingConfig(cfg.MappingFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load mapping config: %w", logPrefix, err)
	}
	table := mapping.NewTableFromConfig(mc)
	slog.Info(fmt.Sprintf("%s - Loaded %d domain mappings from %q", logPrefix, table.Len(), mc.Name))
	return table, nil
}

func newPrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (s *Server) subscribe(ctx context.Context) error {
	routeSubject := s.cfg.RouterSubject
	if routeSubject == "" {
		routeSubject = commsutil.SubjectRoute
	}
	heartbeatSubject := s.cfg.HeartbeatSubject
	if heartbeatSubject == "" {
		heartbeatSubject = commsutil.SubjectHeartbeat
	}

	for subject, handler := range map[string]comms.MsgHandler{
		routeSubject:     s.handleRequestMsg(ctx),
		heartbeatSubject: s.handleHeartbeatMsg(ctx),
	} {
		sub, err := s.nc.Subscribe(subject, handler)
		if err != nil {
			return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, subject, err)
		}
		s.subs = append(s.subs, sub)
		slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, subject))
	}
	return nil
}

// handleRequestMsg serves the request/reply envelope on the route subject.
func (s *Server) handleRequestMsg(ctx context.Context) comms.MsgHandler {
	return func(msg *comms.Msg) {
		var req dispatcher.RouterRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
			_ = commsutil.Respond(msg, &dispatcher.RouterResponse{
				Ok: false,
				Error: &dispatcher.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "Failed to decode request",
				},
			})
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()

		resp := s.disp.Dispatch(reqCtx, &req)
		if err := commsutil.Respond(msg, resp); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to respond: %v", logPrefix, err))
		}
	}
}

// handleHeartbeatMsg accepts bare announcements; a reply is sent only when
// the agent asked for one.
func (s *Server) handleHeartbeatMsg(ctx context.Context) comms.MsgHandler {
	return func(msg *comms.Msg) {
		var in router.HeartbeatInput
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			slog.Warn(fmt.Sprintf("%s - bad heartbeat on %s: %v", logPrefix, msg.Subject, err))
			return
		}
		out, err := s.router.Heartbeat(ctx, &in)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - heartbeat rejected: %v", logPrefix, err))
			_ = commsutil.Respond(msg, &dispatcher.RouterResponse{ID: in.ID, Ok: false, Error: &dispatcher.ErrorDetail{Code: router.CodeInvalidArgument, Message: err.Error()}})
			return
		}
		_ = commsutil.Respond(msg, &dispatcher.RouterResponse{ID: in.ID, Ok: true, Result: out})
	}
}

func (s *Server) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.router.Sweep()
		}
	}
}

func (s *Server) runMappingRefresh(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.MappingRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.router.RefreshMappings(ctx); err != nil {
				slog.Warn(fmt.Sprintf("%s - mapping refresh failed, keeping previous table: %v", logPrefix, err))
			}
		}
	}
}

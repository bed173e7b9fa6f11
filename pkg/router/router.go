package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/agent-router/pkg/db"
	"github.com/morezero/agent-router/pkg/discovery"
	"github.com/morezero/agent-router/pkg/events"
	"github.com/morezero/agent-router/pkg/mapping"
	"github.com/morezero/agent-router/pkg/metrics"
	"github.com/morezero/agent-router/pkg/pool"
)

const logPrefix = "router:router"

// DefaultHeartbeatTTL is used when no pool is supplied.
const DefaultHeartbeatTTL = 30 * time.Second

// Router is the routing service.
type Router struct {
	dispatcher *discovery.Dispatcher
	pool       *pool.Pool
	mapping    *mapping.Table
	publisher  events.EventPublisher
	repo       *db.Repository
	metrics    *metrics.Metrics
}

// NewRouterParams holds parameters for NewRouter. Only Mapping is needed; the
// rest fall back to an in-memory default.
type NewRouterParams struct {
	Mapping    *mapping.Table
	Dispatcher *discovery.Dispatcher
	Pool       *pool.Pool
	Publisher  events.EventPublisher
	Repo       *db.Repository
	Metrics    *metrics.Metrics
}

// NewRouter creates a Router. Without a Dispatcher the four default strategies
// are registered against Mapping.
func NewRouter(params NewRouterParams) (*Router, error) {
	table := params.Mapping
	if table == nil {
		table = mapping.NewTableFromConfig(mapping.DefaultMappingConfig())
	}

	d := params.Dispatcher
	if d == nil {
		var opts []discovery.Option
		if params.Metrics != nil {
			opts = append(opts, discovery.WithObserver(params.Metrics))
		}
		built, err := NewDefaultDispatcher(table, opts...)
		if err != nil {
			return nil, err
		}
		d = built
	}

	p := params.Pool
	if p == nil {
		p = pool.New(DefaultHeartbeatTTL)
	}

	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}

	return &Router{
		dispatcher: d,
		pool:       p,
		mapping:    table,
		publisher:  pub,
		repo:       params.Repo,
		metrics:    params.Metrics,
	}, nil
}

// NewDefaultDispatcher builds a dispatcher with the domain, objective,
// capability and health strategies.
func NewDefaultDispatcher(m discovery.DomainMapping, opts ...discovery.Option) (*discovery.Dispatcher, error) {
	domain, err := discovery.NewDomainStrategy(m)
	if err != nil {
		return nil, fmt.Errorf("%s - domain strategy: %w", logPrefix, err)
	}
	opts = append(opts, discovery.WithStrategies(
		domain,
		discovery.NewObjectiveStrategy(),
		discovery.NewCapabilityStrategy(),
		discovery.NewHealthStrategy(),
	))
	return discovery.NewDispatcher(opts...), nil
}

// Pool returns the agent pool.
func (r *Router) Pool() *pool.Pool { return r.pool }

// Mapping returns the domain mapping table.
func (r *Router) Mapping() *mapping.Table { return r.mapping }

// RefreshMappings reloads the mapping table from the database. It is a no-op
// without a repository.
func (r *Router) RefreshMappings(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}
	if err := db.LoadMappingTable(ctx, r.repo, r.mapping); err != nil {
		return fmt.Errorf("%s - refresh mappings: %w", logPrefix, err)
	}
	slog.Debug(fmt.Sprintf("%s - Mapping table refreshed (%d domains)", logPrefix, r.mapping.Len()))
	return nil
}

// Sweep drops stale agents and updates the pool gauge.
func (r *Router) Sweep() []string {
	stale := r.pool.Sweep()
	r.reportPool()
	return stale
}

func (r *Router) reportPool() {
	if r.metrics == nil {
		return
	}
	healthy, unhealthy := r.pool.Counts()
	r.metrics.SetAgents(healthy, unhealthy)
}

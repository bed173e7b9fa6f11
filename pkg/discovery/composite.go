package discovery

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const compositeLogPrefix = "discovery:composite"

// Observer receives the outcome of every discovery walk.
type Observer interface {
	ObserveDiscovery(strategy string, matched bool, err error, elapsed time.Duration)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver installs an Observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithStrategies registers strategies at construction, in the given order.
func WithStrategies(strategies ...Strategy) Option {
	return func(d *Dispatcher) { d.pending = append(d.pending, strategies...) }
}

// StrategyInfo describes a registered strategy.
type StrategyInfo struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// Selection is a discovery match together with the strategy that produced it.
type Selection struct {
	Handler  Handler
	Strategy string
}

// Dispatcher walks strategies in descending priority and returns the first
// match. Registration is copy-on-write: a walk reads one immutable snapshot
// and never takes a lock.
type Dispatcher struct {
	mu         sync.Mutex
	strategies atomic.Pointer[[]Strategy]
	observer   Observer
	pending    []Strategy
}

// NewDispatcher creates a Dispatcher. Nil strategies passed through
// WithStrategies are ignored.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	empty := []Strategy{}
	d.strategies.Store(&empty)
	for _, opt := range opts {
		opt(d)
	}
	for _, s := range d.pending {
		_ = d.RegisterStrategy(s)
	}
	d.pending = nil
	return d
}

// RegisterStrategy adds a strategy. Equal priorities keep registration order.
func (d *Dispatcher) RegisterStrategy(s Strategy) error {
	if s == nil {
		return ErrNilStrategy
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	current := *d.strategies.Load()
	next := make([]Strategy, len(current), len(current)+1)
	copy(next, current)
	next = append(next, s)
	slices.SortStableFunc(next, func(a, b Strategy) int {
		return cmp.Compare(b.Priority(), a.Priority())
	})
	d.strategies.Store(&next)

	slog.Info(fmt.Sprintf("%s - registered strategy %s (priority %d)", compositeLogPrefix, s.Name(), s.Priority()))
	return nil
}

// StrategyCount returns the number of registered strategies.
func (d *Dispatcher) StrategyCount() int {
	return len(*d.strategies.Load())
}

// Strategies lists registered strategies in evaluation order.
func (d *Dispatcher) Strategies() []StrategyInfo {
	snapshot := *d.strategies.Load()
	out := make([]StrategyInfo, 0, len(snapshot))
	for _, s := range snapshot {
		out = append(out, StrategyInfo{Name: s.Name(), Priority: s.Priority()})
	}
	return out
}

// Discover returns the selected handler, or nil when no strategy matches.
func (d *Dispatcher) Discover(ctx context.Context, req *Request, candidates []Handler) (Handler, error) {
	sel, err := d.Select(ctx, req, candidates)
	return sel.Handler, err
}

// DiscoverAsync runs Discover on its own goroutine. The channel yields exactly
// one Result and is then closed.
func (d *Dispatcher) DiscoverAsync(ctx context.Context, req *Request, candidates []Handler) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		h, err := d.Discover(ctx, req, candidates)
		out <- Result{Handler: h, Err: err}
	}()
	return out
}

// Select is Discover but also reports which strategy matched.
//
// Unhealthy candidates are dropped first; with none left, no strategy runs.
// Strategy errors are returned unchanged and end the walk.
func (d *Dispatcher) Select(ctx context.Context, req *Request, candidates []Handler) (Selection, error) {
	start := time.Now()
	sel, err := d.walk(ctx, req, candidates)
	if d.observer != nil {
		d.observer.ObserveDiscovery(sel.Strategy, sel.Handler != nil, err, time.Since(start))
	}
	return sel, err
}

func (d *Dispatcher) walk(ctx context.Context, req *Request, candidates []Handler) (Selection, error) {
	if err := validateRequest(req); err != nil {
		return Selection{}, err
	}

	healthy := FilterHealthy(candidates)
	if len(healthy) == 0 {
		slog.Debug(fmt.Sprintf("%s - no healthy candidates among %d", compositeLogPrefix, len(candidates)))
		return Selection{}, nil
	}

	for _, s := range *d.strategies.Load() {
		if err := ctx.Err(); err != nil {
			return Selection{}, err
		}
		if !s.CanHandle(req) {
			continue
		}
		h, err := s.Discover(ctx, req, healthy)
		if err != nil {
			return Selection{}, err
		}
		if h != nil {
			slog.Debug(fmt.Sprintf("%s - strategy %s selected %s", compositeLogPrefix, s.Name(), h.TechnicalDomain()))
			return Selection{Handler: h, Strategy: s.Name()}, nil
		}
	}
	return Selection{}, nil
}

package discovery

import "context"

// Strategy priorities. Higher values are evaluated first.
const (
	PriorityDomain     = 100
	PriorityObjective  = 50
	PriorityCapability = 40
	PriorityHealth     = 10
)

// Strategy is one selection algorithm. Strategies are immutable once built and
// safe for concurrent use.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string
	// Priority is fixed at construction.
	Priority() int
	// CanHandle is a cheap applicability check run before Discover.
	CanHandle(req *Request) bool
	// Discover returns the selected handler, or nil when nothing matches.
	Discover(ctx context.Context, req *Request, candidates []Handler) (Handler, error)
}

// Result is the outcome of an asynchronous discovery.
type Result struct {
	Handler Handler
	Err     error
}

// Found reports whether the result carries a handler.
func (r Result) Found() bool {
	return r.Err == nil && r.Handler != nil
}

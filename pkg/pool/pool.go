// Package pool tracks live agents announced over heartbeats and offers them as
// discovery candidates.
package pool

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	masterminds "github.com/Masterminds/semver/v3"

	"github.com/morezero/agent-router/pkg/discovery"
)

const logPrefix = "pool:pool"

// Agent statuses reported in heartbeats.
const (
	StatusUp       = "up"
	StatusDraining = "draining"
	StatusDown     = "down"
)

// Announcement is the heartbeat payload an agent publishes.
type Announcement struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Capabilities []string `json:"capabilities"`
	Version      string   `json:"version,omitempty"`
	Status       string   `json:"status,omitempty"`
}

// Agent is a pooled agent. It implements discovery.Handler; health is
// recomputed on each call from its status and heartbeat age.
type Agent struct {
	id           string
	agentType    discovery.AgentType
	capabilities []string
	version      *masterminds.Version
	rawVersion   string

	pool *Pool

	mu       sync.RWMutex
	status   string
	lastSeen time.Time
}

func (a *Agent) ID() string                           { return a.id }
func (a *Agent) Capabilities() []string               { return a.capabilities }
func (a *Agent) TechnicalDomain() discovery.AgentType { return a.agentType }
func (a *Agent) Version() string                      { return a.rawVersion }

// IsHealthy is true while the agent reports up and its last heartbeat is
// within the pool's TTL.
func (a *Agent) IsHealthy() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status == StatusUp && a.pool.now().Sub(a.lastSeen) <= a.pool.ttl
}

// LastSeen returns the time of the last heartbeat.
func (a *Agent) LastSeen() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastSeen
}

// Status returns the last reported status.
func (a *Agent) Status() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

func (a *Agent) touch(status string, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = status
	a.lastSeen = at
}

// Pool holds agents in registration order.
type Pool struct {
	mu     sync.RWMutex
	agents []*Agent
	byID   map[string]*Agent
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Pool.
type Option func(*Pool)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// New creates a pool whose agents turn unhealthy after ttl without a heartbeat.
func New(ttl time.Duration, opts ...Option) *Pool {
	p := &Pool{byID: make(map[string]*Agent), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Heartbeat registers a new agent or refreshes a known one. A changed type,
// capability set or version replaces the agent in place.
func (p *Pool) Heartbeat(ann Announcement) (*Agent, error) {
	if ann.ID == "" {
		return nil, fmt.Errorf("%s - heartbeat without agent id", logPrefix)
	}
	if ann.Type == "" {
		return nil, fmt.Errorf("%s - heartbeat for %s without type", logPrefix, ann.ID)
	}
	status := ann.Status
	if status == "" {
		status = StatusUp
	}
	var version *masterminds.Version
	if ann.Version != "" {
		v, err := masterminds.NewVersion(ann.Version)
		if err != nil {
			return nil, fmt.Errorf("%s - agent %s has invalid version %q: %w", logPrefix, ann.ID, ann.Version, err)
		}
		version = v
	}
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.byID[ann.ID]; ok && sameShape(existing, ann) {
		existing.touch(status, now)
		return existing, nil
	}

	agent := &Agent{
		id:           ann.ID,
		agentType:    discovery.AgentType(ann.Type),
		capabilities: slices.Clone(ann.Capabilities),
		version:      version,
		rawVersion:   ann.Version,
		pool:         p,
		status:       status,
		lastSeen:     now,
	}
	if existing, ok := p.byID[ann.ID]; ok {
		idx := slices.Index(p.agents, existing)
		p.agents[idx] = agent
		slog.Info(fmt.Sprintf("%s - Agent %s re-announced as %s", logPrefix, ann.ID, ann.Type))
	} else {
		p.agents = append(p.agents, agent)
		slog.Info(fmt.Sprintf("%s - Agent %s joined as %s", logPrefix, ann.ID, ann.Type))
	}
	p.byID[ann.ID] = agent
	return agent, nil
}

func sameShape(a *Agent, ann Announcement) bool {
	return string(a.agentType) == ann.Type &&
		a.rawVersion == ann.Version &&
		slices.Equal(a.capabilities, ann.Capabilities)
}

// Remove drops an agent. It reports whether the agent was present.
func (p *Pool) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	agent, ok := p.byID[id]
	if !ok {
		return false
	}
	delete(p.byID, id)
	p.agents = slices.DeleteFunc(p.agents, func(a *Agent) bool { return a == agent })
	slog.Info(fmt.Sprintf("%s - Agent %s removed", logPrefix, id))
	return true
}

// Get returns an agent by id.
func (p *Pool) Get(id string) (*Agent, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.byID[id]
	return a, ok
}

// Snapshot returns all agents in registration order.
func (p *Pool) Snapshot() []*Agent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.agents)
}

// Len returns the number of pooled agents.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.agents)
}

// Candidates returns agents as discovery handlers. A non-empty constraint
// (e.g. "^2.1") keeps only agents whose version satisfies it; agents without a
// version never satisfy a constraint.
func (p *Pool) Candidates(constraint string) ([]discovery.Handler, error) {
	var c *masterminds.Constraints
	if constraint != "" {
		parsed, err := masterminds.NewConstraint(constraint)
		if err != nil {
			return nil, fmt.Errorf("%s - invalid version constraint %q: %w", logPrefix, constraint, err)
		}
		c = parsed
	}

	agents := p.Snapshot()
	out := make([]discovery.Handler, 0, len(agents))
	for _, a := range agents {
		if c != nil && (a.version == nil || !c.Check(a.version)) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Sweep removes agents silent for longer than three TTLs and returns their ids.
func (p *Pool) Sweep() []string {
	cutoff := p.now().Add(-3 * p.ttl)

	p.mu.Lock()
	defer p.mu.Unlock()
	var stale []string
	p.agents = slices.DeleteFunc(p.agents, func(a *Agent) bool {
		if !a.LastSeen().Before(cutoff) {
			return false
		}
		stale = append(stale, a.id)
		delete(p.byID, a.id)
		return true
	})
	if len(stale) > 0 {
		slog.Info(fmt.Sprintf("%s - Swept %d stale agents", logPrefix, len(stale)))
	}
	return stale
}

// Counts returns the number of healthy and unhealthy agents.
func (p *Pool) Counts() (healthy, unhealthy int) {
	for _, a := range p.Snapshot() {
		if a.IsHealthy() {
			healthy++
		} else {
			unhealthy++
		}
	}
	return healthy, unhealthy
}

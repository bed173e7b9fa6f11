package discovery

import (
	"context"
	"errors"
	"sync/atomic"
)

type testHandler struct {
	name    string
	typ     AgentType
	caps    []string
	healthy atomic.Bool
}

func newHandler(name string, typ AgentType, healthy bool, caps ...string) *testHandler {
	h := &testHandler{name: name, typ: typ, caps: caps}
	h.healthy.Store(healthy)
	return h
}

func (h *testHandler) Capabilities() []string    { return h.caps }
func (h *testHandler) TechnicalDomain() AgentType { return h.typ }
func (h *testHandler) IsHealthy() bool            { return h.healthy.Load() }

type testMapping struct {
	primary   map[string]AgentType
	suggested map[string][]AgentType
}

func (m *testMapping) PrimaryAgentType(domain string) (AgentType, bool) {
	t, ok := m.primary[domain]
	return t, ok
}

func (m *testMapping) SuggestedAgentTypes(domain string) []AgentType {
	return m.suggested[domain]
}

// spyStrategy counts evaluations and returns a fixed result.
type spyStrategy struct {
	name       string
	priority   int
	applicable bool
	result     Handler
	err        error
	calls      atomic.Int32
	onDiscover func()
}

func (s *spyStrategy) Name() string              { return s.name }
func (s *spyStrategy) Priority() int             { return s.priority }
func (s *spyStrategy) CanHandle(_ *Request) bool { return s.applicable }

func (s *spyStrategy) Discover(_ context.Context, _ *Request, _ []Handler) (Handler, error) {
	s.calls.Add(1)
	if s.onDiscover != nil {
		s.onDiscover()
	}
	return s.result, s.err
}

var errBoom = errors.New("boom")

func handlers(hs ...*testHandler) []Handler {
	out := make([]Handler, 0, len(hs))
	for _, h := range hs {
		out = append(out, h)
	}
	return out
}

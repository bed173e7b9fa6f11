package router

import (
	"context"
	"testing"
	"time"

	"github.com/morezero/agent-router/pkg/events"
	"github.com/morezero/agent-router/pkg/mapping"
	"github.com/morezero/agent-router/pkg/pool"
)

const routerTestPrefix = "router:router_test"

// newTestRouter returns a router over the default mapping table and a capturing publisher.
func newTestRouter(t *testing.T) (*Router, *[]*events.AgentRoutedEvent) {
	t.Helper()
	var published []*events.AgentRoutedEvent
	r, err := NewRouter(NewRouterParams{
		Mapping: mapping.NewTableFromConfig(mapping.DefaultMappingConfig()),
		Pool:    pool.New(time.Minute),
		Publisher: events.NewCallbackPublisher(func(_ context.Context, e *events.AgentRoutedEvent) error {
			published = append(published, e)
			return nil
		}),
	})
	if err != nil {
		t.Fatalf("%s - NewRouter: %v", routerTestPrefix, err)
	}
	return r, &published
}

func announce(t *testing.T, r *Router, in HeartbeatInput) {
	t.Helper()
	if _, err := r.Heartbeat(context.Background(), &in); err != nil {
		t.Fatalf("%s - Heartbeat(%s): %v", routerTestPrefix, in.ID, err)
	}
}

func TestNewRouter_Defaults(t *testing.T) {
	r, err := NewRouter(NewRouterParams{})
	if err != nil {
		t.Fatalf("%s - NewRouter: %v", routerTestPrefix, err)
	}
	if r.Pool() == nil || r.Mapping() == nil {
		t.Fatalf("%s - expected default pool and mapping", routerTestPrefix)
	}
	if r.Mapping().Len() == 0 {
		t.Errorf("%s - default mapping table is empty", routerTestPrefix)
	}
	if _, ok := r.publisher.(*events.NoOpPublisher); !ok {
		t.Errorf("%s - expected NoOpPublisher by default, got %T", routerTestPrefix, r.publisher)
	}
}

func TestNewDefaultDispatcher_Order(t *testing.T) {
	d, err := NewDefaultDispatcher(mapping.NewTable(nil))
	if err != nil {
		t.Fatalf("%s - NewDefaultDispatcher: %v", routerTestPrefix, err)
	}
	want := []string{"domain", "objective", "capability", "health"}
	got := d.Strategies()
	if len(got) != len(want) {
		t.Fatalf("%s - %d strategies, want %d", routerTestPrefix, len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("%s - strategies[%d] = %s, want %s", routerTestPrefix, i, got[i].Name, name)
		}
	}
}

func TestNewDefaultDispatcher_NilMapping(t *testing.T) {
	if _, err := NewDefaultDispatcher(nil); err == nil {
		t.Errorf("%s - expected error for nil mapping", routerTestPrefix)
	}
}

func TestRefreshMappings_NoRepo(t *testing.T) {
	r, _ := newTestRouter(t)
	if err := r.RefreshMappings(context.Background()); err != nil {
		t.Errorf("%s - RefreshMappings without repo = %v, want nil", routerTestPrefix, err)
	}
}

func TestRouterError(t *testing.T) {
	err := NewRouterError(CodeNotFound, "agent x not found")
	if err.Error() != "NOT_FOUND: agent x not found" {
		t.Errorf("%s - Error() = %q", routerTestPrefix, err.Error())
	}
}

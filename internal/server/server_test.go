package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/agent-router/internal/config"
	"github.com/morezero/agent-router/pkg/commsutil"
	"github.com/morezero/agent-router/pkg/dispatcher"
	"github.com/morezero/agent-router/pkg/mapping"
	"github.com/morezero/agent-router/pkg/metrics"
	"github.com/morezero/agent-router/pkg/pool"
	"github.com/morezero/agent-router/pkg/router"
)

const serverTestPrefix = "server:server_test"

// testServer returns a Server over an in-memory router, without COMMS or DB.
func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		HealthCheckTimeout: 5 * time.Second,
		RequestTimeout:     5 * time.Second,
		SweepInterval:      time.Minute,
	}
	promReg := newPrometheusRegistry()
	r, err := router.NewRouter(router.NewRouterParams{
		Mapping: mapping.NewTableFromConfig(mapping.DefaultMappingConfig()),
		Pool:    pool.New(time.Minute),
		Metrics: metrics.MustNewMetrics(promReg),
	})
	if err != nil {
		t.Fatalf("%s - NewRouter: %v", serverTestPrefix, err)
	}
	return &Server{cfg: cfg, router: r, disp: dispatcher.NewDispatcher(r), promReg: promReg}
}

func heartbeat(t *testing.T, s *Server, id, agentType string, caps ...string) {
	t.Helper()
	if _, err := s.router.Heartbeat(context.Background(), &router.HeartbeatInput{ID: id, Type: agentType, Capabilities: caps}); err != nil {
		t.Fatalf("%s - Heartbeat(%s): %v", serverTestPrefix, id, err)
	}
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestHandleHome(t *testing.T) {
	s := testServer(t)
	heartbeat(t, s, "biz-1", "BUSINESS_DOMAIN", "pos")

	rec := serve(s, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("%s - home got status %d, want 200", serverTestPrefix, rec.Code)
	}
	if rec.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		t.Errorf("%s - Content-Type = %q, want text/html", serverTestPrefix, rec.Header().Get("Content-Type"))
	}
	body := rec.Body.String()
	for _, want := range []string{"healthy", "pos-inventory", "biz-1", "domain", "BUSINESS_DOMAIN"} {
		if !strings.Contains(body, want) {
			t.Errorf("%s - home body missing %q", serverTestPrefix, want)
		}
	}
}

func TestHandleHome_OnlyRoot(t *testing.T) {
	s := testServer(t)
	rec := serve(s, http.MethodGet, "/other", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("%s - /other got status %d, want 404", serverTestPrefix, rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	s := testServer(t)

	rec := serve(s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("%s - degraded health got status %d, want 200", serverTestPrefix, rec.Code)
	}
	var out router.HealthOutput
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("%s - decode health: %v", serverTestPrefix, err)
	}
	if out.Status != "degraded" {
		t.Errorf("%s - Status = %q, want degraded", serverTestPrefix, out.Status)
	}
}

func TestReadyHandler(t *testing.T) {
	s := testServer(t)
	rec := serve(s, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ready") {
		t.Errorf("%s - ready got %d %q", serverTestPrefix, rec.Code, rec.Body.String())
	}
}

func TestRouteHandler(t *testing.T) {
	s := testServer(t)
	heartbeat(t, s, "biz-1", "BUSINESS_DOMAIN")

	rec := serve(s, http.MethodPost, "/route", `{"domain":"pos-inventory","requestId":"http-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("%s - route got status %d: %s", serverTestPrefix, rec.Code, rec.Body.String())
	}
	var out router.RouteOutput
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("%s - decode route: %v", serverTestPrefix, err)
	}
	if !out.Matched || out.AgentID != "biz-1" || out.RequestID != "http-1" {
		t.Errorf("%s - unexpected route output %+v", serverTestPrefix, out)
	}
}

func TestRouteHandler_Errors(t *testing.T) {
	s := testServer(t)

	if rec := serve(s, http.MethodPost, "/route", `{bad`); rec.Code != http.StatusBadRequest {
		t.Errorf("%s - bad body got %d, want 400", serverTestPrefix, rec.Code)
	}
	rec := serve(s, http.MethodPost, "/route", `{"domain":"x","properties":{"agent-version":"??"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("%s - bad constraint got %d, want 400", serverTestPrefix, rec.Code)
	}
	if rec := serve(s, http.MethodGet, "/route", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("%s - GET /route got %d, want 405", serverTestPrefix, rec.Code)
	}
}

func TestAgentsAndStrategiesHandlers(t *testing.T) {
	s := testServer(t)
	heartbeat(t, s, "a", "DATA")
	heartbeat(t, s, "b", "INTEGRATION")

	rec := serve(s, http.MethodGet, "/agents?type=DATA", "")
	var agents router.AgentsOutput
	if err := json.NewDecoder(rec.Body).Decode(&agents); err != nil {
		t.Fatalf("%s - decode agents: %v", serverTestPrefix, err)
	}
	if agents.Total != 1 || agents.Agents[0].ID != "a" {
		t.Errorf("%s - unexpected agents %+v", serverTestPrefix, agents)
	}

	rec = serve(s, http.MethodGet, "/strategies", "")
	var strategies router.StrategiesOutput
	if err := json.NewDecoder(rec.Body).Decode(&strategies); err != nil {
		t.Fatalf("%s - decode strategies: %v", serverTestPrefix, err)
	}
	if len(strategies.Strategies) != 4 {
		t.Errorf("%s - expected 4 strategies, got %d", serverTestPrefix, len(strategies.Strategies))
	}
}

func TestAgentByIDHandler(t *testing.T) {
	s := testServer(t)
	heartbeat(t, s, "pos-1", "BUSINESS_DOMAIN", "pos")

	rec := serve(s, http.MethodGet, "/agents/pos-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("%s - GET /agents/pos-1 got %d", serverTestPrefix, rec.Code)
	}
	var info router.AgentInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("%s - decode agent: %v", serverTestPrefix, err)
	}
	if info.ID != "pos-1" || info.Type != "BUSINESS_DOMAIN" || !info.Healthy {
		t.Errorf("%s - unexpected agent %+v", serverTestPrefix, info)
	}

	if rec := serve(s, http.MethodGet, "/agents/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("%s - unknown agent got %d, want 404", serverTestPrefix, rec.Code)
	}
}

func TestMetricsHandler(t *testing.T) {
	s := testServer(t)
	heartbeat(t, s, "biz-1", "BUSINESS_DOMAIN")
	serve(s, http.MethodPost, "/route", `{"domain":"pos-inventory"}`)

	rec := serve(s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("%s - metrics got status %d", serverTestPrefix, rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`agent_router_routes_total{outcome="matched",strategy="domain"} 1`,
		`agent_router_agents{state="healthy"} 1`,
		"agent_router_route_duration_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("%s - metrics missing %q", serverTestPrefix, want)
		}
	}
}

func TestLoadMappingTable_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	data := `{"name":"test","version":"1","mappings":{"billing":{"primary":"PAYMENTS","suggested":["DATA"]}}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("%s - write mapping file: %v", serverTestPrefix, err)
	}

	table, err := loadMappingTable(context.Background(), &config.Config{MappingFile: path}, nil)
	if err != nil {
		t.Fatalf("%s - loadMappingTable: %v", serverTestPrefix, err)
	}
	if at, ok := table.PrimaryAgentType("billing"); !ok || at != "PAYMENTS" {
		t.Errorf("%s - billing primary = %q (%v)", serverTestPrefix, at, ok)
	}
}

// startCommsServer runs an in-process NATS server and connects to it.
func startCommsServer(t *testing.T, port int) *comms.Conn {
	t.Helper()
	ns, err := commsserver.NewServer(&commsserver.Options{Host: "127.0.0.1", Port: port, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("%s - failed to create COMMS server: %v", serverTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - COMMS server failed to start", serverTestPrefix)
	}
	nc, err := comms.Connect(ns.ClientURL())
	if err != nil {
		ns.Shutdown()
		t.Fatalf("%s - connect: %v", serverTestPrefix, err)
	}
	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return nc
}

func TestSubscriptions_HeartbeatAndRoute(t *testing.T) {
	s := testServer(t)
	s.nc = startCommsServer(t, 14237)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.subscribe(ctx); err != nil {
		t.Fatalf("%s - subscribe: %v", serverTestPrefix, err)
	}

	var hb dispatcher.RouterResponse
	if err := commsutil.Request(s.nc, commsutil.SubjectHeartbeat, router.HeartbeatInput{ID: "biz-1", Type: "BUSINESS_DOMAIN"}, &hb, 5*time.Second); err != nil {
		t.Fatalf("%s - heartbeat request: %v", serverTestPrefix, err)
	}
	if !hb.Ok {
		t.Fatalf("%s - heartbeat rejected: %+v", serverTestPrefix, hb.Error)
	}

	req := dispatcher.RouterRequest{ID: "nats-1", Method: "route", Params: json.RawMessage(`{"domain":"pos-inventory"}`)}
	var resp struct {
		ID     string             `json:"id"`
		Ok     bool               `json:"ok"`
		Result router.RouteOutput `json:"result"`
	}
	if err := commsutil.Request(s.nc, commsutil.SubjectRoute, req, &resp, 5*time.Second); err != nil {
		t.Fatalf("%s - route request: %v", serverTestPrefix, err)
	}
	if !resp.Ok || resp.ID != "nats-1" || resp.Result.AgentID != "biz-1" {
		t.Errorf("%s - unexpected route response %+v", serverTestPrefix, resp)
	}

	msg, err := s.nc.Request(commsutil.SubjectRoute, []byte("{not json"), 5*time.Second)
	if err != nil {
		t.Fatalf("%s - raw request: %v", serverTestPrefix, err)
	}
	var bad dispatcher.RouterResponse
	if err := json.Unmarshal(msg.Data, &bad); err != nil || bad.Ok || bad.Error.Code != "INVALID_REQUEST" {
		t.Errorf("%s - expected INVALID_REQUEST, got %s", serverTestPrefix, msg.Data)
	}
}

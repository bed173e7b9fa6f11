package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morezero/agent-router/pkg/mapping"
	"github.com/morezero/agent-router/pkg/router"
)

const maxRouteBody = 1 << 20

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome())
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.HandleFunc("GET /agents", s.handleAgents())
	mux.HandleFunc("GET /agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		out, err := s.router.GetAgent(r.Context(), r.PathValue("id"))
		if err != nil {
			writeRouterError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /strategies", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.router.Strategies(r.Context()))
	})
	mux.HandleFunc("POST /route", s.handleRoute())
	if s.promReg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{Registry: s.promReg}))
	}
	return mux
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.router.Health(ctx)
		status := http.StatusOK
		if h.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	}
}

func (s *Server) handleAgents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		out, err := s.router.Agents(r.Context(), &router.AgentsInput{
			Type:        q.Get("type"),
			Version:     q.Get("version"),
			HealthyOnly: q.Get("healthy") == "true",
		})
		if err != nil {
			writeRouterError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleRoute routes a RouteInput posted as JSON.
func (s *Server) handleRoute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input router.RouteInput
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRouteBody))
		if err := dec.Decode(&input); err != nil {
			writeRouterError(w, router.NewRouterError(router.CodeInvalidArgument, "Failed to parse route body"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()

		out, err := s.router.Route(ctx, &input)
		if err != nil {
			writeRouterError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - json encode: %v", logPrefix, err))
	}
}

func writeRouterError(w http.ResponseWriter, err error) {
	var rErr *router.RouterError
	if !errors.As(err, &rErr) {
		rErr = router.NewRouterError(router.CodeInternal, err.Error())
	}
	status := http.StatusInternalServerError
	switch rErr.Code {
	case router.CodeInvalidArgument:
		status = http.StatusBadRequest
	case router.CodeNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]any{"error": rErr})
}

// homePageTemplate is the HTML for the router home page.
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Agent Router</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-degraded { color: #b36b00; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>Agent Router</h1>
  <p class="meta">Routing health, strategies, domain mappings and live agents.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    {{if .Health.Checks.UsesDatabase}}
    <p>Database: {{if .Health.Checks.Database}}<span class="stat">OK</span>{{else}}<span class="error">Failed</span>{{end}}</p>
    {{end}}
    <p>Agents: <span class="stat">{{.Health.Checks.HealthyAgents}}</span> healthy of {{.Health.Checks.Agents}}</p>
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Strategies</h2>
    <table>
      <thead><tr><th>Order</th><th>Strategy</th><th>Priority</th></tr></thead>
      <tbody>
        {{range $i, $s := .Strategies.Strategies}}
        <tr><td>{{inc $i}}</td><td>{{$s.Name}}</td><td>{{$s.Priority}}</td></tr>
        {{end}}
      </tbody>
    </table>
  </section>

  <section>
    <h2>Domain mappings</h2>
    {{if not .Mappings}}
    <p>No domain mappings loaded.</p>
    {{else}}
    <table>
      <thead><tr><th>Domain</th><th>Primary</th><th>Suggested</th></tr></thead>
      <tbody>
        {{range .Mappings}}
        <tr><td>{{.Domain}}</td><td>{{.Primary}}</td><td>{{range .Suggested}}{{.}} {{end}}</td></tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>

  <section>
    <h2>Agents</h2>
    {{if .AgentsError}}
    <p class="error">Could not list agents: {{.AgentsError}}</p>
    {{else if not .Agents.Agents}}
    <p>No agents registered.</p>
    {{else}}
    <table>
      <thead><tr><th>ID</th><th>Type</th><th>Capabilities</th><th>Version</th><th>Status</th><th>Last seen</th></tr></thead>
      <tbody>
        {{range .Agents.Agents}}
        <tr>
          <td>{{.ID}}</td>
          <td>{{.Type}}</td>
          <td>{{range .Capabilities}}{{.}} {{end}}</td>
          <td>{{.Version}}</td>
          <td>{{if .Healthy}}<span class="stat">{{.Status}}</span>{{else}}<span class="error">{{.Status}}</span>{{end}}</td>
          <td>{{.LastSeen}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

// homeData is the data passed to the home page template.
type homeData struct {
	Health      *router.HealthOutput
	Strategies  *router.StrategiesOutput
	Mappings    []mapping.Entry
	Agents      *router.AgentsOutput
	AgentsError string
}

// handleHome returns an HTTP handler for the router home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		data := homeData{
			Health:     s.router.Health(ctx),
			Strategies: s.router.Strategies(ctx),
			Mappings:   s.router.Mapping().Entries(),
		}
		agents, err := s.router.Agents(ctx, nil)
		if err != nil {
			data.AgentsError = err.Error()
		} else {
			data.Agents = agents
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

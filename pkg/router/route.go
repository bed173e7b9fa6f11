package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/agent-router/pkg/commsutil"
	"github.com/morezero/agent-router/pkg/discovery"
	"github.com/morezero/agent-router/pkg/events"
)

const routeLogPrefix = "router:route"

type identified interface {
	ID() string
}

// Route selects an agent for the request. A request nobody can serve is a
// successful call with Matched=false.
func (r *Router) Route(ctx context.Context, input *RouteInput) (*RouteOutput, error) {
	if input == nil {
		return nil, NewRouterError(CodeInvalidArgument, "route input is required")
	}
	requestID := input.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req := &discovery.Request{
		ID: requestID,
		Context: &discovery.RequestContext{
			AgentDomain: input.Domain,
			SessionID:   input.SessionID,
			Properties:  input.Properties,
		},
	}
	qc := discovery.ExtractQueryContext(req)
	constraint, _ := qc.Property(discovery.PropAgentVersion)

	candidates, err := r.pool.Candidates(constraint)
	if err != nil {
		return nil, &RouterError{
			Code:    CodeInvalidArgument,
			Message: fmt.Sprintf("invalid %s constraint %q", discovery.PropAgentVersion, constraint),
			Details: err.Error(),
		}
	}

	start := time.Now()
	sel, err := r.dispatcher.Select(ctx, req, candidates)
	elapsed := time.Since(start)
	if err != nil {
		return nil, toRouterError(err)
	}

	out := &RouteOutput{RequestID: requestID, ElapsedMs: elapsed.Milliseconds()}
	if sel.Handler == nil {
		slog.Info(fmt.Sprintf("%s - No agent for request %s (domain=%q, %d candidates)", routeLogPrefix, requestID, input.Domain, len(candidates)))
		return out, nil
	}

	out.Matched = true
	out.AgentType = string(sel.Handler.TechnicalDomain())
	out.Capabilities = slices.Clone(sel.Handler.Capabilities())
	out.Strategy = sel.Strategy
	if a, ok := sel.Handler.(identified); ok {
		out.AgentID = a.ID()
		out.Subject = commsutil.BuildAgentSubject(out.AgentType, out.AgentID)
	}
	slog.Info(fmt.Sprintf("%s - Request %s routed to %s (%s) by %s", routeLogPrefix, requestID, out.AgentID, out.AgentType, out.Strategy))

	r.publishRouted(ctx, input, out)
	return out, nil
}

func (r *Router) publishRouted(ctx context.Context, input *RouteInput, out *RouteOutput) {
	event := &events.AgentRoutedEvent{
		RequestID: out.RequestID,
		Domain:    input.Domain,
		SessionID: input.SessionID,
		Matched:   out.Matched,
		AgentID:   out.AgentID,
		AgentType: out.AgentType,
		Strategy:  out.Strategy,
		ElapsedMs: out.ElapsedMs,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.publisher.PublishRouted(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - Failed to publish routed event for %s: %v", routeLogPrefix, out.RequestID, err))
	}
}

func toRouterError(err error) *RouterError {
	var rErr *RouterError
	if errors.As(err, &rErr) {
		return rErr
	}
	var vErr *discovery.ValidationError
	if errors.As(err, &vErr) || errors.Is(err, discovery.ErrNilRequest) {
		return &RouterError{Code: CodeInvalidArgument, Message: err.Error()}
	}
	return &RouterError{Code: CodeInternal, Message: err.Error()}
}

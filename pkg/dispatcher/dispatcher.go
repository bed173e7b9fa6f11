package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/agent-router/pkg/router"
)

const logPrefix = "dispatcher:dispatch"

// Dispatcher routes COMMS requests to router methods.
type Dispatcher struct {
	router *router.Router
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(r *router.Router) *Dispatcher {
	return &Dispatcher{router: r}
}

// Dispatch routes a request to the matching router method and returns a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *RouterRequest) *RouterResponse {
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s", logPrefix, req.Method, req.ID))

	if req.Ctx != nil && req.Ctx.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Ctx.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	switch req.Method {
	case "route":
		return d.handleRoute(ctx, req)
	case "agents":
		return d.handleAgents(ctx, req)
	case "agent":
		return d.handleAgent(ctx, req)
	case "strategies":
		return &RouterResponse{ID: req.ID, Ok: true, Result: d.router.Strategies(ctx)}
	case "heartbeat":
		return d.handleHeartbeat(ctx, req)
	case "health":
		return &RouterResponse{ID: req.ID, Ok: true, Result: d.router.Health(ctx)}
	default:
		return errorResponse(req.ID, "METHOD_NOT_FOUND", fmt.Sprintf("Unknown method: %s", req.Method), false)
	}
}

func (d *Dispatcher) handleRoute(ctx context.Context, req *RouterRequest) *RouterResponse {
	var input router.RouteInput
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, router.CodeInvalidArgument, "Failed to parse route params", false)
	}
	if req.Ctx != nil {
		if input.SessionID == "" {
			input.SessionID = req.Ctx.SessionID
		}
		if input.RequestID == "" {
			input.RequestID = req.Ctx.RequestID
		}
	}
	if input.RequestID == "" {
		input.RequestID = req.ID
	}

	result, err := d.router.Route(ctx, &input)
	if err != nil {
		return routerErrorToResponse(req.ID, err)
	}
	return &RouterResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleAgents(ctx context.Context, req *RouterRequest) *RouterResponse {
	var input router.AgentsInput
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, router.CodeInvalidArgument, "Failed to parse agents params", false)
	}

	result, err := d.router.Agents(ctx, &input)
	if err != nil {
		return routerErrorToResponse(req.ID, err)
	}
	return &RouterResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleAgent(ctx context.Context, req *RouterRequest) *RouterResponse {
	var input router.AgentInput
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, router.CodeInvalidArgument, "Failed to parse agent params", false)
	}
	if input.ID == "" {
		return errorResponse(req.ID, router.CodeInvalidArgument, "agent id is required", false)
	}

	result, err := d.router.GetAgent(ctx, input.ID)
	if err != nil {
		return routerErrorToResponse(req.ID, err)
	}
	return &RouterResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleHeartbeat(ctx context.Context, req *RouterRequest) *RouterResponse {
	var input router.HeartbeatInput
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, router.CodeInvalidArgument, "Failed to parse heartbeat params", false)
	}

	result, err := d.router.Heartbeat(ctx, &input)
	if err != nil {
		return routerErrorToResponse(req.ID, err)
	}
	return &RouterResponse{ID: req.ID, Ok: true, Result: result}
}

// --- helpers ---

// decodeParams accepts missing params as an empty object.
func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func errorResponse(id, code, message string, retryable bool) *RouterResponse {
	return &RouterResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func routerErrorToResponse(id string, err error) *RouterResponse {
	var rErr *router.RouterError
	if errors.As(err, &rErr) {
		return &RouterResponse{
			ID: id,
			Ok: false,
			Error: &ErrorDetail{
				Code:      rErr.Code,
				Message:   rErr.Message,
				Details:   rErr.Details,
				Retryable: rErr.Code == router.CodeInternal,
			},
		}
	}
	return errorResponse(id, router.CodeInternal, err.Error(), true)
}

// Package router is the service facade over discovery: it owns the agent pool,
// the strategy dispatcher and event publishing.
package router

import "github.com/morezero/agent-router/pkg/discovery"

// RouteInput holds parameters for the route method.
type RouteInput struct {
	RequestID  string         `json:"requestId,omitempty"`
	Domain     string         `json:"domain"`
	SessionID  string         `json:"sessionId,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// RouteOutput holds the result of the route method. Matched is false when no
// agent fits; the caller should then route manually or escalate.
type RouteOutput struct {
	RequestID    string   `json:"requestId"`
	Matched      bool     `json:"matched"`
	AgentID      string   `json:"agentId,omitempty"`
	AgentType    string   `json:"agentType,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Strategy     string   `json:"strategy,omitempty"`
	Subject      string   `json:"subject,omitempty"`
	ElapsedMs    int64    `json:"elapsedMs"`
}

// AgentsInput holds filters for the agents method.
type AgentsInput struct {
	Type        string `json:"type,omitempty"`
	Version     string `json:"version,omitempty"`
	HealthyOnly bool   `json:"healthyOnly,omitempty"`
}

// AgentInput identifies one agent for the agent method.
type AgentInput struct {
	ID string `json:"id"`
}

// AgentsOutput holds the result of the agents method.
type AgentsOutput struct {
	Agents  []AgentInfo `json:"agents"`
	Total   int         `json:"total"`
	Healthy int         `json:"healthy"`
}

// AgentInfo describes one pooled agent.
type AgentInfo struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Capabilities []string `json:"capabilities"`
	Version      string   `json:"version,omitempty"`
	Status       string   `json:"status"`
	Healthy      bool     `json:"healthy"`
	LastSeen     string   `json:"lastSeen"`
}

// HeartbeatInput is an agent announcement.
type HeartbeatInput struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Capabilities []string `json:"capabilities"`
	Version      string   `json:"version,omitempty"`
	Status       string   `json:"status,omitempty"`
}

// HeartbeatOutput holds the result of the heartbeat method.
type HeartbeatOutput struct {
	AgentID string `json:"agentId"`
	Removed bool   `json:"removed,omitempty"`
	Healthy bool   `json:"healthy"`
	Agents  int    `json:"agents"`
}

// StrategiesOutput lists registered strategies in evaluation order.
type StrategiesOutput struct {
	Strategies []discovery.StrategyInfo `json:"strategies"`
}

// HealthOutput holds the result of the health method.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
}

// HealthChecks holds individual health check results.
type HealthChecks struct {
	Database      bool `json:"database"`
	UsesDatabase  bool `json:"usesDatabase"`
	Strategies    int  `json:"strategies"`
	Agents        int  `json:"agents"`
	HealthyAgents int  `json:"healthyAgents"`
}

// Error codes.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
)

// RouterError is a structured error from the router.
type RouterError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *RouterError) Error() string {
	return e.Code + ": " + e.Message
}

// NewRouterError creates a new RouterError.
func NewRouterError(code, message string) *RouterError {
	return &RouterError{Code: code, Message: message}
}

// Package discovery selects the single best-suited agent for a request from a
// pool of candidates. A Dispatcher walks registered strategies in priority
// order and returns the first match.
package discovery

import (
	"errors"
	"fmt"
)

// AgentType identifies the technical domain an agent belongs to.
type AgentType string

// Handler is a candidate agent. Implementations must be side-effect free and
// cheap to call; IsHealthy is read on every discovery call.
type Handler interface {
	Capabilities() []string
	TechnicalDomain() AgentType
	IsHealthy() bool
}

// DomainMapping maps a domain string to agent types.
type DomainMapping interface {
	// PrimaryAgentType returns the preferred agent type for the domain, if any.
	PrimaryAgentType(domain string) (AgentType, bool)
	// SuggestedAgentTypes returns fallback types in preference order.
	SuggestedAgentTypes(domain string) []AgentType
}

// Request is an incoming unit of work to route.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Context *RequestContext `json:"context"`
}

// RequestContext carries the routing inputs of a request.
type RequestContext struct {
	AgentDomain string         `json:"agentDomain"`
	SessionID   string         `json:"sessionId,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// NewRequest builds a request for the given domain and properties.
func NewRequest(domain string, props map[string]any) *Request {
	return &Request{Context: &RequestContext{AgentDomain: domain, Properties: props}}
}

var (
	// ErrNilRequest is returned when Discover is called without a request.
	ErrNilRequest = errors.New("discovery: request is nil")
	// ErrNilStrategy is returned when registering a nil strategy.
	ErrNilStrategy = errors.New("discovery: strategy is nil")
	// ErrNilDomainMapping is returned when a domain strategy is built without a table.
	ErrNilDomainMapping = errors.New("discovery: domain mapping is nil")
)

// ValidationError reports a malformed request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("discovery: invalid request: %s %s", e.Field, e.Reason)
}

// validateRequest fails fast on requests no strategy can read.
func validateRequest(req *Request) error {
	if req == nil {
		return ErrNilRequest
	}
	if req.Context == nil {
		return &ValidationError{Field: "context", Reason: "is required"}
	}
	return nil
}

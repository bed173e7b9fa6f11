package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

const domainLogPrefix = "discovery:domain"

// DomainStrategy routes by the request's domain using a DomainMapping table.
type DomainStrategy struct {
	mapping DomainMapping
}

// NewDomainStrategy builds a DomainStrategy. The mapping is required.
func NewDomainStrategy(mapping DomainMapping) (*DomainStrategy, error) {
	if mapping == nil {
		return nil, ErrNilDomainMapping
	}
	return &DomainStrategy{mapping: mapping}, nil
}

func (s *DomainStrategy) Name() string  { return "domain" }
func (s *DomainStrategy) Priority() int { return PriorityDomain }

// CanHandle is true whenever the request names a domain.
func (s *DomainStrategy) CanHandle(req *Request) bool {
	return ExtractQueryContext(req).Domain != ""
}

// Discover tries, in order: the primary type, the suggested types in table
// order, then any candidate advertising the domain itself as a capability.
func (s *DomainStrategy) Discover(_ context.Context, req *Request, candidates []Handler) (Handler, error) {
	domain := ExtractQueryContext(req).Domain
	if domain == "" {
		return nil, nil
	}

	if primary, ok := s.mapping.PrimaryAgentType(domain); ok {
		if h := firstOfType(candidates, primary); h != nil {
			slog.Debug(fmt.Sprintf("%s - domain=%s matched primary type %s", domainLogPrefix, domain, primary))
			return h, nil
		}
	}

	for _, suggested := range s.mapping.SuggestedAgentTypes(domain) {
		if h := firstOfType(candidates, suggested); h != nil {
			slog.Debug(fmt.Sprintf("%s - domain=%s matched suggested type %s", domainLogPrefix, domain, suggested))
			return h, nil
		}
	}

	for _, h := range candidates {
		if slices.Contains(h.Capabilities(), domain) {
			slog.Debug(fmt.Sprintf("%s - domain=%s matched by capability", domainLogPrefix, domain))
			return h, nil
		}
	}
	return nil, nil
}

func firstOfType(candidates []Handler, t AgentType) Handler {
	for _, h := range candidates {
		if h.TechnicalDomain() == t {
			return h
		}
	}
	return nil
}

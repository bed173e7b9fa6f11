package discovery

import (
	"context"
	"slices"
)

// CapabilityStrategy scores candidates by overlap with the request's
// required-capabilities list.
type CapabilityStrategy struct{}

// NewCapabilityStrategy builds a CapabilityStrategy.
func NewCapabilityStrategy() *CapabilityStrategy {
	return &CapabilityStrategy{}
}

func (s *CapabilityStrategy) Name() string  { return "capability" }
func (s *CapabilityStrategy) Priority() int { return PriorityCapability }

// CanHandle is true when the request carries a required-capabilities list.
func (s *CapabilityStrategy) CanHandle(req *Request) bool {
	_, ok := requiredCapabilities(ExtractQueryContext(req))
	return ok
}

// Discover picks the candidate sharing the most required capabilities, ten
// points per shared capability. Ties keep the earlier candidate.
func (s *CapabilityStrategy) Discover(_ context.Context, req *Request, candidates []Handler) (Handler, error) {
	required, ok := requiredCapabilities(ExtractQueryContext(req))
	if !ok || len(required) == 0 {
		return nil, nil
	}

	var best Handler
	bestScore := 0
	for _, h := range candidates {
		score := overlap(h.Capabilities(), required) * pointsPerMatch
		if score > bestScore {
			best, bestScore = h, score
		}
	}
	return best, nil
}

func requiredCapabilities(qc QueryContext) ([]string, bool) {
	v, ok := qc.Properties[PropRequiredCapabilities]
	if !ok {
		return nil, false
	}
	return stringList(v)
}

// overlap counts distinct required capabilities the candidate advertises.
func overlap(have, required []string) int {
	n := 0
	seen := make(map[string]struct{}, len(required))
	for _, r := range required {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		if slices.Contains(have, r) {
			n++
		}
	}
	return n
}

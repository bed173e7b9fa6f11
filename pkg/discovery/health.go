package discovery

import "context"

// HealthStrategy is the lowest-priority fallback: the first healthy candidate.
type HealthStrategy struct{}

// NewHealthStrategy builds a HealthStrategy.
func NewHealthStrategy() *HealthStrategy {
	return &HealthStrategy{}
}

func (s *HealthStrategy) Name() string              { return "health" }
func (s *HealthStrategy) Priority() int             { return PriorityHealth }
func (s *HealthStrategy) CanHandle(_ *Request) bool { return true }

// Discover returns the first healthy candidate.
func (s *HealthStrategy) Discover(_ context.Context, _ *Request, candidates []Handler) (Handler, error) {
	for _, h := range candidates {
		if h.IsHealthy() {
			return h, nil
		}
	}
	return nil, nil
}

// FilterHealthy returns the healthy candidates in their original order.
func FilterHealthy(candidates []Handler) []Handler {
	out := make([]Handler, 0, len(candidates))
	for _, h := range candidates {
		if h != nil && h.IsHealthy() {
			out = append(out, h)
		}
	}
	return out
}

package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/agent-router/pkg/pool"
)

const agentsLogPrefix = "router:agents"

// Heartbeat registers or refreshes an agent. A "down" status removes it.
func (r *Router) Heartbeat(_ context.Context, input *HeartbeatInput) (*HeartbeatOutput, error) {
	if input == nil || input.ID == "" {
		return nil, NewRouterError(CodeInvalidArgument, "agent id is required")
	}
	defer r.reportPool()

	if input.Status == pool.StatusDown {
		removed := r.pool.Remove(input.ID)
		return &HeartbeatOutput{AgentID: input.ID, Removed: removed, Agents: r.pool.Len()}, nil
	}

	agent, err := r.pool.Heartbeat(pool.Announcement{
		ID:           input.ID,
		Type:         input.Type,
		Capabilities: input.Capabilities,
		Version:      input.Version,
		Status:       input.Status,
	})
	if err != nil {
		return nil, &RouterError{Code: CodeInvalidArgument, Message: "invalid heartbeat", Details: err.Error()}
	}
	slog.Debug(fmt.Sprintf("%s - Heartbeat from %s (%s)", agentsLogPrefix, agent.ID(), agent.TechnicalDomain()))
	return &HeartbeatOutput{AgentID: agent.ID(), Healthy: agent.IsHealthy(), Agents: r.pool.Len()}, nil
}

// Agents lists pooled agents in registration order.
func (r *Router) Agents(_ context.Context, input *AgentsInput) (*AgentsOutput, error) {
	if input == nil {
		input = &AgentsInput{}
	}
	candidates, err := r.pool.Candidates(input.Version)
	if err != nil {
		return nil, &RouterError{Code: CodeInvalidArgument, Message: "invalid version constraint", Details: err.Error()}
	}

	out := &AgentsOutput{Agents: make([]AgentInfo, 0, len(candidates))}
	for _, c := range candidates {
		a := c.(*pool.Agent)
		if input.Type != "" && string(a.TechnicalDomain()) != input.Type {
			continue
		}
		healthy := a.IsHealthy()
		if input.HealthyOnly && !healthy {
			continue
		}
		out.Agents = append(out.Agents, AgentInfo{
			ID:           a.ID(),
			Type:         string(a.TechnicalDomain()),
			Capabilities: a.Capabilities(),
			Version:      a.Version(),
			Status:       a.Status(),
			Healthy:      healthy,
			LastSeen:     a.LastSeen().UTC().Format(time.RFC3339),
		})
		if healthy {
			out.Healthy++
		}
	}
	out.Total = len(out.Agents)
	return out, nil
}

// GetAgent describes a single agent.
func (r *Router) GetAgent(_ context.Context, id string) (*AgentInfo, error) {
	a, ok := r.pool.Get(id)
	if !ok {
		return nil, NewRouterError(CodeNotFound, fmt.Sprintf("agent %s not found", id))
	}
	return &AgentInfo{
		ID:           a.ID(),
		Type:         string(a.TechnicalDomain()),
		Capabilities: a.Capabilities(),
		Version:      a.Version(),
		Status:       a.Status(),
		Healthy:      a.IsHealthy(),
		LastSeen:     a.LastSeen().UTC().Format(time.RFC3339),
	}, nil
}

// Strategies lists registered strategies in evaluation order.
func (r *Router) Strategies(_ context.Context) *StrategiesOutput {
	return &StrategiesOutput{Strategies: r.dispatcher.Strategies()}
}

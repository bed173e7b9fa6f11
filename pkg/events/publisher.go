package events

import "context"

// EventPublisher publishes routing events.
type EventPublisher interface {
	PublishRouted(ctx context.Context, event *AgentRoutedEvent) error
}

// NoOpPublisher discards events.
type NoOpPublisher struct{}

// PublishRouted is a no-op.
func (p *NoOpPublisher) PublishRouted(_ context.Context, _ *AgentRoutedEvent) error {
	return nil
}

// CallbackPublisher hands each event to a function, for tests and in-process listeners.
type CallbackPublisher struct {
	callback func(ctx context.Context, event *AgentRoutedEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *AgentRoutedEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishRouted calls the callback.
func (p *CallbackPublisher) PublishRouted(ctx context.Context, event *AgentRoutedEvent) error {
	return p.callback(ctx, event)
}

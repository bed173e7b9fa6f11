package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/agent-router/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// RoutedSubject overrides the global routed subject (ROUTER_ROUTED_EVENT_SUBJECT).
	RoutedSubject string
}

// CommsPublisher publishes routed events to COMMS subjects.
type CommsPublisher struct {
	nc            *comms.Conn
	routedSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	subject := commsutil.SubjectRouted
	if opts != nil && opts.RoutedSubject != "" {
		subject = opts.RoutedSubject
	}
	return &CommsPublisher{nc: nc, routedSubject: subject}
}

// PublishRouted publishes the event to the per-domain subject and the global one.
func (p *CommsPublisher) PublishRouted(_ context.Context, event *AgentRoutedEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	domainSubject := commsutil.BuildRoutedSubject(event.Domain)
	if err := p.nc.Publish(domainSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, domainSubject, err))
		return err
	}

	if err := p.nc.Publish(p.routedSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.routedSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published routed event for request %s (domain=%s)", commsPublisherLogPrefix, event.RequestID, event.Domain))
	return nil
}

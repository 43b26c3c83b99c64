package services

import (
	"context"
	"fmt"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
)

// BusNotifier publishes notifications on the shared event bus instead of
// writing to sockets, so every instance's EventRelay can deliver them.
type BusNotifier struct {
	publisher domain.EventPublisher
}

var _ domain.Notifier = (*BusNotifier)(nil)

func NewBusNotifier(publisher domain.EventPublisher) *BusNotifier {
	return &BusNotifier{publisher: publisher}
}

func (n *BusNotifier) BroadcastAll(ctx context.Context, event string, payload interface{}) error {
	return n.publish(ctx, domain.ScopeAll, "", event, payload)
}

func (n *BusNotifier) BroadcastToGroup(ctx context.Context, auctionID, event string, payload interface{}) error {
	return n.publish(ctx, domain.ScopeGroup, auctionID, event, payload)
}

func (n *BusNotifier) NotifyUser(ctx context.Context, userID, event string, payload interface{}) error {
	return n.publish(ctx, domain.ScopeUser, userID, event, payload)
}

func (n *BusNotifier) publish(ctx context.Context, scope domain.Scope, target, event string, payload interface{}) error {
	env, err := domain.NewEnvelope(scope, target, event, payload)
	if err != nil {
		return err
	}
	return n.publisher.Publish(ctx, env)
}

// EventRelay consumes envelopes from the bus and hands them to this
// instance's websocket connections.
type EventRelay struct {
	connectionManager domain.ConnectionManager
	log               logger.Logger
}

func NewEventRelay(connectionManager domain.ConnectionManager, log logger.Logger) *EventRelay {
	return &EventRelay{
		connectionManager: connectionManager,
		log:               log,
	}
}

// Start blocks until ctx is cancelled or the subscription fails.
func (r *EventRelay) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	r.log.Info("Starting event relay")
	return subscriber.Subscribe(ctx, r.Deliver)
}

func (r *EventRelay) Deliver(env *domain.Envelope) error {
	frame, err := env.Frame()
	if err != nil {
		return err
	}

	switch env.Scope {
	case domain.ScopeAll:
		return r.connectionManager.BroadcastAll(frame)
	case domain.ScopeGroup:
		return r.connectionManager.BroadcastToGroup(env.Target, frame)
	case domain.ScopeUser:
		return r.connectionManager.NotifyUser(env.Target, frame)
	}

	return fmt.Errorf("unknown envelope scope %q for event %s", env.Scope, env.Event)
}

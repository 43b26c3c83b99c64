package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"auction-house/internal/domain"

	"github.com/go-redis/redis/v8"
)

type EventPublisherImpl struct {
	client  *redis.Client
	channel string
}

var _ domain.EventPublisher = (*EventPublisherImpl)(nil)

func NewEventPublisher(client *redis.Client, channel string) *EventPublisherImpl {
	return &EventPublisherImpl{client: client, channel: channel}
}

func (r *EventPublisherImpl) Publish(ctx context.Context, env *domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

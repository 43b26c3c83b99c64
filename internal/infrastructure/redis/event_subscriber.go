package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type RedisEventSubscriber struct {
	client  *redis.Client
	channel string
	log     logger.Logger
}

var _ domain.EventSubscriber = (*RedisEventSubscriber)(nil)

func NewRedisEventSubscriber(client *redis.Client, channel string, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client:  client,
		channel: channel,
		log:     log,
	}
}

// Subscribe delivers every envelope on the channel to handler until ctx is done.
func (r *RedisEventSubscriber) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}
	ch := pubsub.Channel()

	r.log.Info("Subscribed to auction events", "channel", r.channel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription to %s closed", r.channel)
			}
			r.dispatch(msg.Payload, handler)

		case <-ctx.Done():
			r.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}

func (r *RedisEventSubscriber) dispatch(payload string, handler domain.EventHandler) {
	var env domain.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Error("Failed to parse event", "payload", payload, "error", err)
		return
	}

	if err := handler(&env); err != nil {
		r.log.Error("Failed to handle event", "event", env.Event, "error", err)
	}
}

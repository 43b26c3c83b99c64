package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventBus fans envelopes out through a fanout exchange. Every subscriber
// gets its own exclusive, auto-deleted queue, so each instance sees every event.
type EventBus struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	publishM sync.Mutex
	exchange string
	log      logger.Logger
}

var (
	_ domain.EventPublisher  = (*EventBus)(nil)
	_ domain.EventSubscriber = (*EventBus)(nil)
)

func NewEventBus(url, exchange string, log logger.Logger) (*EventBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &EventBus{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		log:      log,
	}, nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}
	return nil
}

func (b *EventBus) Publish(ctx context.Context, env *domain.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	b.publishM.Lock()
	defer b.publishM.Unlock()

	return b.channel.PublishWithContext(ctx,
		b.exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Subscribe binds a temporary queue to the exchange and delivers every
// envelope to handler until ctx is done.
func (b *EventBus) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",
		false,
		true,
		true,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declaring queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", b.exchange, false, nil); err != nil {
		return fmt.Errorf("binding queue %s: %w", q.Name, err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		true,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consuming %s: %w", q.Name, err)
	}

	b.log.Info("Subscribed to auction events", "exchange", b.exchange, "queue", q.Name)

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", q.Name)
			}
			b.dispatch(msg.Body, handler)

		case <-ctx.Done():
			b.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}

func (b *EventBus) dispatch(body []byte, handler domain.EventHandler) {
	var env domain.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		b.log.Error("Failed to parse event", "error", err)
		return
	}

	if err := handler(&env); err != nil {
		b.log.Error("Failed to handle event", "event", env.Event, "error", err)
	}
}

func (b *EventBus) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

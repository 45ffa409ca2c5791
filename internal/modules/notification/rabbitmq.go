// README: RabbitMQ sink publishing notifications to a topic exchange.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultExchange = "medride.notifications"

// amqpChannel is the part of *amqp.Channel the sink uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitSink struct {
	ch       amqpChannel
	exchange string
}

// NewRabbitSink declares the exchange once and returns the sink.
func NewRabbitSink(ch amqpChannel, exchange string) (*RabbitSink, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &RabbitSink{ch: ch, exchange: exchange}, nil
}

func (s *RabbitSink) Name() string { return "rabbitmq" }

// RoutingKey is notification.<event kind>, e.g. notification.request.transition.
func RoutingKey(n Notification) string {
	return "notification." + string(n.EventKind)
}

func (s *RabbitSink) Deliver(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.ch.PublishWithContext(ctx, s.exchange, RoutingKey(n), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    string(n.ID),
		Timestamp:    n.At,
		Type:         string(n.EventKind),
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

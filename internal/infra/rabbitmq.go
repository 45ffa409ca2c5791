// README: RabbitMQ connection with retrying dial.
package infra

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Chan *amqp.Channel
}

// NewRabbitMQ dials url with exponential backoff, giving up after attempts
// tries or when ctx is done.
func NewRabbitMQ(ctx context.Context, url string, attempts int, log *logrus.Logger) (*RabbitMQ, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	backoff := time.Second
	for i := 1; i <= attempts; i++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			ch, err := conn.Channel()
			if err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("open rabbitmq channel: %w", err)
			}
			return &RabbitMQ{Conn: conn, Chan: ch}, nil
		}
		lastErr = err
		log.WithError(err).WithField("attempt", i).Warn("RabbitMQ dial failed")
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("connect rabbitmq after %d attempts: %w", attempts, lastErr)
}

func (r *RabbitMQ) Close() {
	if r.Chan != nil {
		_ = r.Chan.Close()
	}
	if r.Conn != nil {
		_ = r.Conn.Close()
	}
}

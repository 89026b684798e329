package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/logger"
)

// ErrDeliveriesClosed is returned when the broker closes the delivery channel.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Handler processes one completed analysis event.
type Handler func(ctx context.Context, event domain.AnalysisCompleted) error

// AMQPConsumer reads analysis events from a durable queue bound to the exchange.
type AMQPConsumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
}

// NewAMQPConsumer dials url, declares the exchange and queue, and binds them
// with routingKey.
func NewAMQPConsumer(url, exchange, queue, routingKey string) (*AMQPConsumer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &AMQPConsumer{conn: conn, channel: ch, queue: queue}
	if err := c.setup(exchange, routingKey); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *AMQPConsumer) setup(exchange, routingKey string) error {
	err := c.channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := c.channel.QueueBind(c.queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Consume delivers events to handler until ctx is cancelled.
func (c *AMQPConsumer) Consume(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	logger.FromContext(ctx).Info().Str("queue", c.queue).Msg("Started consuming analysis events")
	return consumeDeliveries(ctx, msgs, handler)
}

// consumeDeliveries acks handled messages, drops undecodable ones and
// requeues messages whose handler failed.
func consumeDeliveries(ctx context.Context, msgs <-chan amqp091.Delivery, handler Handler) error {
	log := logger.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Err(ctx.Err()).Msg("Stopping event consumption")
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}

			event, err := DecodeAnalysisCompleted(delivery.Body)
			if err != nil {
				log.Error().Err(err).Str("message_id", delivery.MessageId).Msg("Failed to decode event")
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, event); err != nil {
				log.Error().Err(err).Str("run_id", event.RunID).Msg("Failed to handle event")
				_ = delivery.Nack(false, true)
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}

// Close closes the channel and connection.
func (c *AMQPConsumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

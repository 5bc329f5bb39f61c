package feed

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nhle/milkfeed/internal/model"
)

const amqpConsumerTag = "milkfeed"

// AMQPSource consumes notifications from a RabbitMQ queue. The queue is
// expected to exist; a missing queue fails Connect and is retried.
type AMQPSource struct {
	url   string
	queue string
}

// NewAMQPSource creates a source consuming queue on the broker at url.
func NewAMQPSource(url, queue string) *AMQPSource {
	return &AMQPSource{url: url, queue: queue}
}

// Name returns the transport name.
func (s *AMQPSource) Name() string { return model.TransportAMQP }

// Connect dials the broker and starts an auto-ack consumer.
func (s *AMQPSource) Connect(_ context.Context) (Conn, error) {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return nil, fmt.Errorf("connecting to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	deliveries, err := ch.Consume(
		s.queue,         // queue
		amqpConsumerTag, // consumer
		true,            // auto-ack
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("consuming %s: %w", s.queue, err)
	}

	return &amqpConn{conn: conn, ch: ch, deliveries: deliveries}, nil
}

type amqpConn struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
}

// Read returns the body of the next delivery.
func (c *amqpConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d, ok := <-c.deliveries:
		if !ok {
			return nil, errors.New("amqp delivery channel closed")
		}
		return d.Body, nil
	}
}

// Close closes the channel and the connection.
func (c *amqpConn) Close() error {
	_ = c.ch.Close()
	if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return nil
}

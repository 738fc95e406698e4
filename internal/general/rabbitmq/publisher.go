package rabbitmq

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrNotConnected = errors.New("rabbitmq: not connected")
	ErrNacked       = errors.New("rabbitmq: publish not acknowledged")
)

const publishTimeout = 5 * time.Second

// Publisher adapts a Client to ports.MessagePublisher.
type Publisher struct {
	client *Client
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish sends body as a persistent JSON message and waits for the
// broker confirm.
func (p *Publisher) Publish(exchange, routingKey string, body []byte) error {
	return p.client.publish(exchange, routingKey, body)
}

func (c *Client) publish(exchange, routingKey string, body []byte) error {
	c.mu.RLock()
	conn, ch := c.conn, c.pubChan
	c.mu.RUnlock()
	if conn == nil || conn.IsClosed() || ch == nil || ch.IsClosed() {
		return ErrNotConnected
	}

	// Confirms arrive in publish order on a single channel, so publishes
	// are serialised to pair each one with its confirm.
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(ctx, exchange, routingKey, true, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return err
	}

	select {
	case conf, ok := <-c.confirms:
		if !ok {
			return ErrNotConnected
		}
		if !conf.Ack {
			return ErrNacked
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

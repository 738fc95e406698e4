package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"train-chat/internal/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// HandlerTimeout bounds one delivery's handler.
	HandlerTimeout = 30 * time.Second
	// RequeueDelay holds back a failed delivery so a broken dependency is
	// not retried in a tight loop.
	RequeueDelay = time.Second
)

// Handler processes one message body. A nil return acks the delivery.
// An error wrapping ports.ErrPoisonMessage drops it; any other error
// requeues it after RequeueDelay.
type Handler = func(ctx context.Context, body []byte) error

// Consume reads queue on a dedicated channel with manual acks until ctx
// ends or the channel closes.
func (c *Client) Consume(ctx context.Context, queue, tag string, prefetch int, h Handler) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || conn.IsClosed() {
		return ErrNotConnected
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq open consumer channel: %w", err)
	}
	defer ch.Close()

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("rabbitmq qos(%d): %w", prefetch, err)
		}
	}

	deliveries, err := ch.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume %s: %w", queue, err)
	}
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(tag, false)
			return nil
		case cerr := <-chClosed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq channel closed while consuming %s: %w", queue, cerr)
			}
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			settle(ctx, d, h)
		}
	}
}

// acknowledger is the settle side of amqp.Delivery.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func settle(ctx context.Context, d amqp.Delivery, h Handler) {
	hctx, cancel := context.WithTimeout(ctx, HandlerTimeout)
	err := h(hctx, d.Body)
	cancel()

	if requeue(err) {
		t := time.NewTimer(RequeueDelay)
		select {
		case <-ctx.Done():
		case <-t.C:
		}
		t.Stop()
	}
	ack(d, err)
}

func requeue(err error) bool {
	return err != nil && !errors.Is(err, ports.ErrPoisonMessage)
}

func ack(a acknowledger, err error) {
	if err != nil {
		_ = a.Nack(false, requeue(err))
		return
	}
	_ = a.Ack(false)
}

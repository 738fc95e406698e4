package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"train-chat/internal/general/contracts"
	"train-chat/internal/general/logger"
	"train-chat/internal/ports"

	"github.com/google/uuid"
)

const producerName = "gateway-service"

// Outbox is the production PresencePublisher. Publish never blocks: a
// full queue drops the event. Run drains the queue into the broker on a
// single goroutine.
type Outbox struct {
	queue     chan contracts.PresenceMessage
	publisher ports.MessagePublisher
	logger    *logger.Logger
	dropped   atomic.Int64
}

// NewOutbox creates an outbox holding at most size pending events.
func NewOutbox(size int, publisher ports.MessagePublisher, logger *logger.Logger) *Outbox {
	if size < 1 {
		size = 1
	}
	return &Outbox{
		queue:     make(chan contracts.PresenceMessage, size),
		publisher: publisher,
		logger:    logger,
	}
}

// Publish enqueues msg.
func (o *Outbox) Publish(ctx context.Context, msg contracts.PresenceMessage) {
	select {
	case o.queue <- msg:
	default:
		n := o.dropped.Add(1)
		o.logger.Warn(ctx, "presence_dropped", "Presence outbox full, event dropped", map[string]any{
			"kind":    msg.Kind,
			"dropped": n,
		})
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (o *Outbox) Dropped() int64 { return o.dropped.Load() }

// Run publishes queued events until ctx is done, then flushes whatever is
// still queued before returning. Broker failures are logged and the event
// is discarded.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			o.drain(context.WithoutCancel(ctx))
			return
		case msg := <-o.queue:
			o.send(ctx, msg)
		}
	}
}

func (o *Outbox) drain(ctx context.Context) {
	for {
		select {
		case msg := <-o.queue:
			o.send(ctx, msg)
		default:
			return
		}
	}
}

func (o *Outbox) send(ctx context.Context, msg contracts.PresenceMessage) {
	msg.Envelope = contracts.Envelope{
		CorrelationID: uuid.NewString(),
		Producer:      producerName,
		SentAt:        time.Now().UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		o.logger.Error(ctx, "presence_marshal_failed", "Failed to marshal presence event", err, nil)
		return
	}
	if err := o.publisher.Publish(contracts.ExchangePresenceFanout, msg.RoomID, body); err != nil {
		o.logger.Error(o.logger.WithRoomID(ctx, msg.RoomID), "presence_publish_failed", "Failed to publish presence event", err, map[string]any{
			"kind": msg.Kind,
		})
	}
}

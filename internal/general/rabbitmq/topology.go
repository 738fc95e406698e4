package rabbitmq

import (
	"fmt"

	"train-chat/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange is a durable exchange to declare.
type Exchange struct {
	Name string
	Kind string // fanout | topic | direct
}

// Binding attaches a queue to an exchange.
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
}

// Topology is everything a Client declares after each (re)connect.
type Topology struct {
	Exchanges []Exchange
	Queues    []string
	Bindings  []Binding
}

// PresenceTopology is the gateway -> admin side channel: one fanout
// exchange with the journal queue bound to it.
func PresenceTopology() Topology {
	return Topology{
		Exchanges: []Exchange{{Name: contracts.ExchangePresenceFanout, Kind: amqp.ExchangeFanout}},
		Queues:    []string{contracts.QueuePresenceEvents},
		Bindings: []Binding{
			{Queue: contracts.QueuePresenceEvents, Exchange: contracts.ExchangePresenceFanout},
		},
	}
}

// declarer is the part of *amqp.Channel topology setup needs.
type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

func (t Topology) declare(ch declarer) error {
	for _, ex := range t.Exchanges {
		if err := ch.ExchangeDeclare(ex.Name, ex.Kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.Name, err)
		}
	}
	for _, q := range t.Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	for _, b := range t.Bindings {
		if err := ch.QueueBind(b.Queue, b.RoutingKey, b.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.Queue, b.Exchange, err)
		}
	}
	return nil
}

package rabbitmq

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"train-chat/internal/general/config"
	"train-chat/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Client holds one AMQP connection plus a confirm-mode publishing channel
// and replaces both in the background when the broker drops them.
type Client struct {
	url    string
	topo   Topology
	logger *logger.Logger
	logCtx context.Context

	mu       sync.RWMutex
	conn     *amqp.Connection
	pubChan  *amqp.Channel
	confirms chan amqp.Confirmation
	pubMu    sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
	reconnect chan struct{}
}

// URL builds the amqp:// address from the rabbitmq config section.
func URL(cfg *config.Config) string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(cfg.RabbitMQ.User, cfg.RabbitMQ.Password),
		Host:   cfg.RabbitMQ.Host + ":" + strconv.Itoa(cfg.RabbitMQ.Port),
		Path:   "/",
	}
	return u.String()
}

// Dial connects once, declares topo and starts the reconnect watcher.
// A failed first attempt is returned to the caller rather than retried.
func Dial(ctx context.Context, cfg *config.Config, topo Topology, log *logger.Logger) (*Client, error) {
	c := &Client{
		url:       URL(cfg),
		topo:      topo,
		logger:    log,
		logCtx:    context.WithoutCancel(ctx),
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	go c.watch()
	return c, nil
}

// Close stops the watcher and releases the connection. Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.closed) })

	c.mu.Lock()
	if c.pubChan != nil {
		_ = c.pubChan.Close()
		c.pubChan = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

func (c *Client) connect() (err error) {
	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		c.logger.Error(c.logCtx, "rabbitmq_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq open channel: %w", err)
	}
	if err = c.topo.declare(ch); err != nil {
		c.logger.Error(c.logCtx, "rabbitmq_declare_topology_failed", "Failed to declare RabbitMQ topology", err, nil)
		return fmt.Errorf("rabbitmq topology: %w", err)
	}
	if err = ch.Confirm(false); err != nil {
		return fmt.Errorf("rabbitmq confirm mode: %w", err)
	}

	returns := ch.NotifyReturn(make(chan amqp.Return, 1))
	go func() {
		for r := range returns {
			c.logger.Warn(c.logCtx, "rabbitmq_returned", "Unroutable message returned", map[string]any{
				"exchange": r.Exchange,
				"code":     r.ReplyCode,
				"size":     len(r.Body),
			})
		}
	}()

	c.pubMu.Lock()
	c.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	c.pubMu.Unlock()

	c.mu.Lock()
	if c.pubChan != nil && !c.pubChan.IsClosed() {
		_ = c.pubChan.Close()
	}
	c.conn, c.pubChan = conn, ch
	c.mu.Unlock()

	go c.notifyOnClose(conn, ch)

	c.logger.Info(c.logCtx, "rabbitmq_connected", "RabbitMQ connection established", nil)
	return nil
}

func (c *Client) notifyOnClose(conn *amqp.Connection, ch *amqp.Channel) {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-c.closed:
		return
	case <-connClosed:
	case <-chClosed:
	}
	select {
	case c.reconnect <- struct{}{}:
	default:
	}
}

func (c *Client) watch() {
	for {
		select {
		case <-c.closed:
			return
		case <-c.reconnect:
		}

		backoff := minBackoff
		for {
			if err := c.connect(); err == nil {
				break
			}
			c.logger.Warn(c.logCtx, "rabbitmq_retry", "Reconnect failed, backing off", map[string]any{"backoff": backoff.String()})

			t := time.NewTimer(backoff)
			select {
			case <-c.closed:
				t.Stop()
				return
			case <-t.C:
			}
			backoff = nextBackoff(backoff)
		}
	}
}

// nextBackoff doubles d up to maxBackoff.
func nextBackoff(d time.Duration) time.Duration {
	if d < minBackoff {
		return minBackoff
	}
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

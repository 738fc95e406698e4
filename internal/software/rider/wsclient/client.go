// Package wsclient is the rider's single connection to the gateway. It
// redials with backoff when the link drops and reports every reconnect so
// the session layer can resend its binding.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"train-chat/internal/general/contracts"
	"train-chat/internal/general/logger"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Emit while the link is down.
var ErrNotConnected = errors.New("not connected to gateway")

const (
	writeWait   = 5 * time.Second
	minBackoff  = 500 * time.Millisecond
	maxBackoff  = 10 * time.Second
	eventBuffer = 64
)

// Options tunes a Client.
type Options struct {
	// OnConnect runs on the Run goroutine after every successful dial,
	// before any inbound frame is read.
	OnConnect func(ctx context.Context)
	Header    http.Header
	Dialer    *websocket.Dialer
}

type Client struct {
	url       string
	logger    *logger.Logger
	dialer    *websocket.Dialer
	header    http.Header
	onConnect func(ctx context.Context)

	mu   sync.Mutex
	conn *websocket.Conn

	events chan contracts.Frame
}

func New(url string, log *logger.Logger, opts Options) *Client {
	d := opts.Dialer
	if d == nil {
		d = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	return &Client{
		url:       url,
		logger:    log,
		dialer:    d,
		header:    opts.Header,
		onConnect: opts.OnConnect,
		events:    make(chan contracts.Frame, eventBuffer),
	}
}

// Events delivers decoded server frames. It is closed when Run returns.
func (c *Client) Events() <-chan contracts.Frame { return c.events }

// Connected reports whether the link is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Emit writes one {"type","data"} frame. It fails fast with
// ErrNotConnected instead of queueing.
func (c *Client) Emit(eventType string, payload any) error {
	frame, err := contracts.EncodeFrame(eventType, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write %s: %w", eventType, err)
	}
	return nil
}

// Run keeps the connection up until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	backoff := minBackoff
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn(ctx, "gateway_dial_failed", "Gateway unreachable, retrying", map[string]any{
				"error":   err.Error(),
				"backoff": backoff.String(),
			})
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff

		c.setConn(conn)
		c.logger.Info(ctx, "gateway_connected", "Connected to gateway", map[string]any{"url": c.url})
		if c.onConnect != nil {
			c.onConnect(ctx)
		}

		err = c.readLoop(ctx, conn)
		c.setConn(nil)
		_ = conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn(ctx, "gateway_disconnected", "Lost gateway connection", map[string]any{"error": fmt.Sprint(err)})
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.mu.Unlock()
		_ = conn.Close()
	})
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var f contracts.Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.logger.Warn(ctx, "gateway_frame_invalid", "Undecodable frame from gateway", nil)
			continue
		}
		select {
		case c.events <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

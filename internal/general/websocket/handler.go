// Package websocket is the gateway's WebSocket transport: it upgrades
// HTTP requests, runs the per-connection read loop and write pump, and
// hands every inbound frame to a ports.Gateway.
package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"train-chat/internal/general/config"
	"train-chat/internal/general/logger"
	"train-chat/internal/ports"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned for upgrades attempted after Close.
var ErrClosed = errors.New("websocket handler closed")

// Handler serves GET /ws.
type Handler struct {
	logger     *logger.Logger
	gateway    ports.Gateway
	upgrader   websocket.Upgrader
	sendBuffer int
	newID      func() string

	// live connections; http.Server.Shutdown does not track hijacked ones
	mu      sync.Mutex
	clients map[*client]struct{}
	closing bool
	active  sync.WaitGroup
}

// NewHandler builds the transport from the websocket config section.
func NewHandler(cfg *config.Config, gateway ports.Gateway, log *logger.Logger) *Handler {
	h := &Handler{
		logger:     log,
		gateway:    gateway,
		sendBuffer: cfg.WebSocket.SendBuffer,
		newID:      uuid.NewString,
		clients:    make(map[*client]struct{}),
	}
	if h.sendBuffer < 1 {
		h.sendBuffer = 1
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.WebSocket.AllowedOrigins),
	}
	return h
}

// originChecker allows any origin when allowed is empty, otherwise only
// exact scheme://host matches.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

// ServeHTTP upgrades the request and blocks until the connection ends.
// Disconnect runs exactly once on the way out.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}

	c := newClient(h.newID(), conn, h.sendBuffer)
	ctx := h.logger.WithConnID(r.Context(), c.id)

	if !h.track(c) {
		h.logger.Warn(ctx, "ws_rejected_closing", "Connection refused during shutdown", nil)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ErrClosed.Error()),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer h.untrack(c)

	if err := h.gateway.Connect(ctx, c); err != nil {
		h.logger.Error(ctx, "ws_register_failed", "Failed to register connection", err, nil)
		_ = conn.Close()
		return
	}

	go c.writePump(ctx, h.logger)
	defer func() {
		h.gateway.Disconnect(ctx, c.id)
		c.close()
	}()

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Warn(ctx, "ws_unexpected_close", "Connection closed unexpectedly", map[string]any{"error": err.Error()})
			} else {
				h.logger.Debug(ctx, "ws_connection_closed", "Connection closed", nil)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := h.gateway.Dispatch(ctx, c, payload); err != nil {
			h.logger.Debug(ctx, "ws_frame_rejected", "Inbound frame rejected", map[string]any{"error": err.Error()})
		}
	}
}

// Close stops accepting connections, closes every live one and waits
// until each has run its Disconnect, or until ctx is done.
func (h *Handler) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	for c := range h.clients {
		c.close()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) track(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.clients[c] = struct{}{}
	h.active.Add(1)
	return true
}

func (h *Handler) untrack(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.active.Done()
}

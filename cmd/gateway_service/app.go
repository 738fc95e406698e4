package gatewayservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"train-chat/internal/general/config"
	"train-chat/internal/general/logger"
	"train-chat/internal/general/rabbitmq"
	"train-chat/internal/general/websocket"
	"train-chat/internal/software/gateway/service"

	"golang.org/x/sync/errgroup"
)

// Run wires the presence gateway and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath string, maxConcurrent int) error {
	// load a config from file
	cfg, err := config.LoadFromFile(configPath, config.SectionWebSocket, config.SectionRabbitMQ)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// set up a new logger for the gateway with a static request ID for startup logs
	logger := logger.New("gateway-service", logger.Options{Level: cfg.Logger.Level, Encoding: cfg.Logger.Encoding})
	defer logger.Sync()
	ctx = logger.WithRequestID(ctx, "startup-001")

	g, ctx := errgroup.WithContext(ctx)

	// the outbox outlives ctx so the disconnects of the shutdown still go out
	outboxCtx, stopOutbox := context.WithCancel(context.WithoutCancel(ctx))
	defer stopOutbox()

	opts := service.Options{MaxMessageChars: cfg.WebSocket.MaxMessageChars}

	// presence events go out through the broker only when it is enabled
	if cfg.RabbitMQ.Enabled {
		client, err := rabbitmq.Dial(ctx, cfg, rabbitmq.PresenceTopology(), logger)
		if err != nil {
			logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
			return err
		}
		defer client.Close()

		outbox := service.NewOutbox(cfg.WebSocket.OutboxSize, rabbitmq.NewPublisher(client), logger)
		opts.Presence = outbox
		g.Go(func() error {
			outbox.Run(outboxCtx)
			return nil
		})
	}

	gateway := service.NewGateway(logger, opts)

	// set up the routes
	mux := http.NewServeMux()
	ws := websocket.NewHandler(cfg, gateway, logger)
	mux.Handle("GET /ws", ws)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Gateway started on port %d", cfg.WebSocket.Port),
		map[string]any{
			"port":           cfg.WebSocket.Port,
			"max_concurrent": maxConcurrent,
			"broker":         cfg.RabbitMQ.Enabled,
		},
	)

	// WebSocket connections are long-lived, so there is no read or write
	// timeout on the server; the transport runs its own deadlines.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebSocket.Port),
		Handler:           withConcurrencyLimit(maxConcurrent, mux),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.WebSocket.Port})
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		defer stopOutbox()

		shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}

		// upgraded connections are not covered by Shutdown
		if err := ws.Close(shCtx); err != nil {
			logger.Error(ctx, "ws_close_timeout", "Timed out closing WebSocket connections", err, nil)
		}
		if n := gateway.DisconnectAll(shCtx); n > 0 {
			logger.Warn(ctx, "sessions_force_closed", "Closed sessions left after transport shutdown", map[string]any{"sessions": n})
		}

		logger.Info(ctx, "service_stopped", "Gateway stopped", nil)
		return nil
	})

	return g.Wait()
}

// withConcurrencyLimit caps how many connections are served at once. A
// WebSocket holds its slot for as long as it stays open.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		default:
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}

package adminservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"train-chat/internal/general/config"
	"train-chat/internal/general/logger"
	"train-chat/internal/general/postgres"
	"train-chat/internal/general/rabbitmq"
	"train-chat/internal/general/redis"
	"train-chat/internal/ports"
	"train-chat/internal/software/adminboard/handler"
	"train-chat/internal/software/adminboard/service"

	"golang.org/x/sync/errgroup"
)

// Run wires the admin dashboard service and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath string, maxConcurrent int) error {
	// load a config from file
	cfg, err := config.LoadFromFile(configPath,
		config.SectionDatabase, config.SectionRabbitMQ, config.SectionRedis, config.SectionServices)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// set up a new logger for admin service with a static request ID for startup logs
	logger := logger.New("admin-service", logger.Options{Level: cfg.Logger.Level, Encoding: cfg.Logger.Encoding})
	defer logger.Sync()
	ctx = logger.WithRequestID(ctx, "startup-001")

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// live rosters are mirrored in Redis
	rdb, err := redis.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "redis_connection_failed", "Failed to connect to Redis", err, nil)
		return err
	}
	defer rdb.Close()

	// without a broker the dashboard still serves whatever is stored
	var consumer ports.QueueConsumer
	if cfg.RabbitMQ.Enabled {
		client, err := rabbitmq.Dial(ctx, cfg, rabbitmq.PresenceTopology(), logger)
		if err != nil {
			logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
			return err
		}
		defer client.Close()
		consumer = client
	}

	// set up the repos and the service
	uow := postgres.NewUnitOfWork(pool)
	events := postgres.NewPresenceEventRepo(pool)
	roster := redis.NewRoster(rdb)
	svc := service.NewAdminService(uow, events, roster, consumer, logger)

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	handler.NewAdminHTTPHandler(svc, logger).RegisterRoutes(mux)

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Admin service started on port %d", cfg.Services.AdminServicePort),
		map[string]any{"port": cfg.Services.AdminServicePort, "max_concurrent": maxConcurrent},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.AdminServicePort),
		Handler:           withConcurrencyLimit(maxConcurrent, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error { return svc.RunBackgroundConsumer(ctx) })
	}

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.AdminServicePort})
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		return nil
	})

	return g.Wait()
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// Requests wait for a slot until their context is done.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}

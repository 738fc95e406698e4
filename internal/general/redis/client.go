// Package redis mirrors live room rosters for the admin dashboard.
package redis

import (
	"context"
	"fmt"

	"train-chat/internal/general/config"
	"train-chat/internal/general/logger"

	"github.com/redis/go-redis/v9"
)

// Connect opens a client from the redis config section and pings it.
func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*redis.Client, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	log.Info(ctx, "redis_connected", "Connected to Redis", map[string]any{"addr": cfg.Redis.Addr, "db": cfg.Redis.DB})
	return cli, nil
}

package infra_redis_init

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-redis/redis"
	"github.com/humanbelnik/dinevote/internal/config"
)

// Connect opens a client for cfg and checks it with PING.
func Connect(cfg config.RedisCache) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
	})

	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s:%s: %w", cfg.Host, cfg.Port, err)
	}
	return client, nil
}

func MustEstablishConn(cfg config.RedisCache, logger *slog.Logger) *redis.Client {
	client, err := Connect(cfg)
	if err != nil {
		logger.Error("redis is unreachable", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to redis", "addr", client.Options().Addr)
	return client
}

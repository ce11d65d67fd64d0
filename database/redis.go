package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finsig/sentimentd/config"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

// ConnectRedis connects to Redis and verifies the connection with a ping.
// Redis is optional; callers skip this when no REDIS_URL is configured.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zaplogger.Info("Connected to Redis")

	return client, nil
}

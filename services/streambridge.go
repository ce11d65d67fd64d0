package services

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/finsig/sentimentd/shared/zaplogger"
)

var SnapshotPostgresChannel = "CH:SENTIMENT:SNAPSHOT"
var SnapshotRedisChannel = "CH:SENTIMENT:SNAPSHOT"

// PublishSnapshotsToRedisChannel bridges Postgres NOTIFY payloads on the
// snapshot channel into a Redis pub/sub channel, so external consumers can
// follow the per-second sentiment without polling the table. A trigger on
// second_snapshots does the NOTIFY.
func PublishSnapshotsToRedisChannel(ctx context.Context, redisClient *redis.Client, pgConnStr string) {
	listener := pq.NewListener(pgConnStr, 10*time.Second, time.Minute, nil)
	if err := listener.Listen(SnapshotPostgresChannel); err != nil {
		zaplogger.Error("SNAPSHOT BRIDGE: Failed to create listener", zaplogger.Fields{
			"Postgres Channel": SnapshotPostgresChannel,
			"error":            err.Error(),
		})
		return
	}
	defer listener.Close()

	zaplogger.Info("SNAPSHOT BRIDGE: Starting to Publish", zaplogger.Fields{
		"Postgres Channel": SnapshotPostgresChannel,
		"Redis Channel":    SnapshotRedisChannel,
	})

	for {
		select {
		case <-ctx.Done():
			zaplogger.Info("SNAPSHOT BRIDGE: Stopped")
			return
		case n := <-listener.Notify:
			if n == nil {
				continue
			}
			err := redisClient.Publish(ctx, SnapshotRedisChannel, n.Extra).Err()
			if err != nil {
				zaplogger.Error("SNAPSHOT BRIDGE: Failed to publish to Redis", zaplogger.Fields{
					"Redis Channel": SnapshotRedisChannel,
					"error":         err.Error(),
				})
			}
		case <-time.After(90 * time.Second):
			go func() {
				if err := listener.Ping(); err != nil {
					zaplogger.Error("SNAPSHOT BRIDGE: Error pinging PostgreSQL", zaplogger.Fields{
						"error": err.Error(),
					})
				}
			}()
		}
	}
}

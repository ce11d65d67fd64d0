// Package main is the entry point for the sentiment engine
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/finsig/sentimentd/config"
	"github.com/finsig/sentimentd/database"
	"github.com/finsig/sentimentd/markethours"
	"github.com/finsig/sentimentd/pipeline"
	"github.com/finsig/sentimentd/services"
	"github.com/finsig/sentimentd/shared/middleware"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

func main() {
	// Setup logger
	defer zaplogger.Sync()

	// startUpMessage
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("Sentimentd")

	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		zaplogger.Fatal("failed to load configuration", zaplogger.Fields{"error": err})
	}
	zaplogger.Info("  * loaded")
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	// Market clock, fail closed if the exchange time zone is unavailable
	clock, err := markethours.NewClock(cfg.SkipMarketHoursCheck())
	if err != nil {
		zaplogger.Fatal("failed to load exchange time zone", zaplogger.Fields{"error": err})
	}

	// Index weight table
	weights, err := config.LoadWeights(cfg.WeightsConfigPath)
	if err != nil {
		zaplogger.Fatal("failed to load weight table", zaplogger.Fields{"error": err})
	}
	if total := weights.Total(); total < 0.95 || total > 1.05 {
		zaplogger.Warn("Weight table does not sum to ~1.0", zaplogger.Fields{"total": total})
	}

	// Connect to Postgres
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		zaplogger.Fatal("Failed to connect to Postgres", zaplogger.Fields{"error": err})
	}

	// Connect Redis (optional)
	var redisClient *redis.Client
	if cfg.RedisUrl != "" {
		redisClient, err = database.ConnectRedis(cfg)
		if err != nil {
			zaplogger.Fatal("Failed to connect to Redis", zaplogger.Fields{"error": err})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the processing pipeline
	p := pipeline.New(cfg, db, weights, clock)
	pipelineDone := make(chan error, 1)
	go func() {
		pipelineDone <- p.Run(ctx)
	}()

	// Setup and start cron jobs
	cronService := services.NewCronService(cfg, db, p)
	cronService.Start()

	// Snapshot bridge (optional, needs Redis)
	if cfg.SnapshotBridgeEnabled() {
		if redisClient == nil {
			zaplogger.Warn("Snapshot bridge enabled but no Redis configured, bridge disabled")
		} else {
			go services.PublishSnapshotsToRedisChannel(ctx, redisClient, cfg.PostgresDsn)
		}
	}

	// Read API
	var e *echo.Echo
	if cfg.ReadAPIEnabled() {
		e = echo.New()
		e.HideBanner = true
		e.HidePort = true
		middleware.SetupLoggerMiddleware(e)
		setupRoutes(e, db, cfg)
		go startServer(e, cfg)
	}

	<-ctx.Done()
	zaplogger.Info("Shutting down")

	if e != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := e.Shutdown(shutdownCtx); err != nil {
			zaplogger.Error("Server shutdown failed", zaplogger.Fields{"error": err})
		}
		cancel()
	}
	cronService.Stop()
	<-pipelineDone

	zaplogger.Info("Shutdown complete")
}

// startServer starts the Echo server on the specified port
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "3008"
	}
	startupMessage := fmt.Sprintf("%s %s Server [:%s] started", cfg.APIName, cfg.APIVersion, port)

	zaplogger.Info(config.SingleLine)
	zaplogger.Info(startupMessage)
	zaplogger.Info(config.SingleLine)
	if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
		zaplogger.Fatal("Server failed", zaplogger.Fields{"error": err})
	}
}

// Package main is the entry point for the sentiment engine
package main

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/finsig/sentimentd/api/article"
	"github.com/finsig/sentimentd/api/candle"
	"github.com/finsig/sentimentd/api/snapshot"
	"github.com/finsig/sentimentd/config"
	"github.com/finsig/sentimentd/shared/response"
)

// setupRoutes configures the read API routes
func setupRoutes(e *echo.Echo, db *gorm.DB, cfg *config.Config) {

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("/", indexRoute)

	// Snapshot routes
	snapshotService := snapshot.NewService(db, cfg.InstrumentSymbol)
	snapshotHandler := snapshot.NewHandler(snapshotService)
	snapshotGroup := api.Group("/snapshot")
	snapshotGroup.GET("/latest", snapshotHandler.GetLatest)
	snapshotGroup.GET("/recent", snapshotHandler.GetRecent)
	snapshotGroup.GET("/minute/latest", snapshotHandler.GetLatestMinuteRow)

	// Candle routes
	candleService := candle.NewService(db, cfg.InstrumentSymbol)
	candleHandler := candle.NewHandler(candleService)
	candleGroup := api.Group("/candle")
	candleGroup.GET("/hundred", candleHandler.GetHundredTick)

	// Article routes
	articleService := article.NewService(db)
	articleHandler := article.NewHandler(articleService)
	articleGroup := api.Group("/article")
	articleGroup.GET("/recent", articleHandler.GetRecent)

	// Prometheus metrics
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// indexRoute sets up the index route for the API
func indexRoute(c echo.Context) error {
	cfg, err := config.Get()
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "configuration unavailable")
	}
	message := fmt.Sprintf("%s %s", cfg.APIName, cfg.APIVersion)
	return response.SuccessResponse(c, message)
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sita-labs/webhook-dispatcher/internal/api"
	"github.com/sita-labs/webhook-dispatcher/internal/config"
	"github.com/sita-labs/webhook-dispatcher/internal/dispatch"
	"github.com/sita-labs/webhook-dispatcher/internal/metrics"
	"github.com/sita-labs/webhook-dispatcher/internal/store"
	ws "github.com/sita-labs/webhook-dispatcher/internal/websocket"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize PostgreSQL
	ctx := context.Background()
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := pgStore.RunMigrations(ctx, "migrations"); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Initialize Redis (recent-activity feed)
	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()
	logger.Info("connected to Redis")

	metrics.RegisterDefault()

	// WebSocket hub for live delivery events
	hub := ws.NewHub(logger)
	go hub.Run()

	// Dispatch engine
	deliverer := dispatch.NewDeliverer(pgStore, pgStore, redisStore, hub,
		cfg.DeliveryTimeout, cfg.FailureThreshold, logger)
	engine := dispatch.NewEngine(pgStore, pgStore, deliverer,
		cfg.MaxConcurrentDeliveries, cfg.MaxRetries, logger)

	// Setup router
	router := api.NewRouter(pgStore, redisStore, engine, hub)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Dispatch calls hold the response open while deliveries run; the
		// write timeout must outlast the per-delivery timeout.
		WriteTimeout: cfg.DeliveryTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

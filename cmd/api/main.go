package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"zarab-collections/internal/backend"
	"zarab-collections/internal/config"
	"zarab-collections/internal/dashboard"
	"zarab-collections/internal/logger"
	"zarab-collections/internal/server"
	"zarab-collections/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, stopSweeper context.CancelFunc, flushTraces func(context.Context) error, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	stopSweeper()

	if err := flushTraces(ctx); err != nil {
		logger.Error("Failed to flush traces", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Zarab Collections API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()

	flushTraces, err := telemetry.InitTracer(ctx, telemetry.TracingConfig{
		Environment:  cfg.Server.Env,
		OTLPEndpoint: cfg.Telemetry.Endpoint,
		SampleRate:   cfg.Telemetry.SampleRate,
		Enabled:      cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	client, err := backend.Connect(ctx, cfg, "migrations", log)
	if err != nil {
		log.Fatal("Failed to connect to the catalog database", zap.Error(err))
	}
	log.Info("Database health check", zap.Any("health", client.Health(ctx)))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, rate limiting is disabled until it recovers", zap.Error(err))
	}
	cancelPing()

	registry := dashboard.NewRegistry(client.Products(), log, cfg.Dashboard.IdleTTL())
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	go registry.Run(sweepCtx, time.Minute)

	srv := server.NewServer(cfg, log, client, redisClient, registry)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, stopSweeper, flushTraces, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}

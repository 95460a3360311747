package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iterable-forwarder/internal/api"
	"iterable-forwarder/internal/config"
	"iterable-forwarder/internal/engine"
	"iterable-forwarder/internal/iterable"
	"iterable-forwarder/internal/pipeline"
	"iterable-forwarder/internal/store"
	ws "iterable-forwarder/internal/websocket"
	"iterable-forwarder/internal/worker"
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

	// Initialize Redis
	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()
	logger.Info("connected to Redis")

	// WebSocket hub for dashboard clients
	hub := ws.NewHub(logger)
	go hub.Run()

	// Outbound client with circuit breaking and rate limiting
	breaker := engine.NewCircuitBreaker(redisStore.Client(), logger)
	limiter := engine.NewRateLimiter(redisStore.Client(), logger)
	client := iterable.NewHTTPClient(cfg.IterableBaseURL, logger,
		iterable.WithBreaker(breaker),
		iterable.WithRateLimit(limiter, cfg.OutboundRateLimit),
		iterable.WithTimeout(cfg.HTTPTimeout),
	)

	// Pipeline
	recorder := store.NewAttemptRecorder(pgStore, logger)
	processor := pipeline.NewProcessor(client, pipeline.JSONCodec{}, recorder, logger)

	// Queue and workers for asynchronous processing
	queue := engine.NewQueue(redisStore.Client(), logger)
	runner := worker.NewRunner(processor, hub, logger)
	pool := worker.NewPool(cfg.NumWorkers, runner, logger)
	dispatcher := worker.NewDispatcher(redisStore.Client(), pool, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	pool.Start(workerCtx)
	go dispatcher.Start(workerCtx)

	// Setup router
	router := api.NewRouter(processor, queue, pgStore, hub)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
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

	stopWorkers()
	pool.Stop()

	logger.Info("server stopped")
}

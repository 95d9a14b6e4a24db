package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/delarge95/ai-news-aggregator/internal/app"
	"github.com/delarge95/ai-news-aggregator/internal/config"
	httpserver "github.com/delarge95/ai-news-aggregator/internal/http"
	"github.com/delarge95/ai-news-aggregator/internal/http/handlers"
	"github.com/delarge95/ai-news-aggregator/internal/queue"
	"github.com/delarge95/ai-news-aggregator/internal/service"
	"github.com/delarge95/ai-news-aggregator/internal/worker"
)

func main() {
	logger := log.New(os.Stdout, "[news-ai] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := app.OpenStore(ctx, cfg, logger)
	defer store.Close()

	analysisCache := app.NewAnalysisCache(ctx, cfg, logger)
	defer analysisCache.Close()

	producer, consumer, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	client := app.NewTextGenerator(cfg)
	if !client.Available() {
		logger.Printf("llm provider=%s has no api key, analysis steps will fail", cfg.LLMProvider)
	}
	orchestrator := app.NewOrchestrator(cfg, client, analysisCache.Cache, logger)
	processing := orchestrator.Config()
	logger.Printf(
		"pipeline configured batch_size=%d max_concurrent_batches=%d max_concurrent_analyses=%d commit_policy=%s",
		processing.BatchSize,
		processing.MaxConcurrentBatches,
		processing.MaxConcurrentAnalyses,
		processing.CommitPolicy,
	)

	batches := service.NewBatchesService(service.BatchesDependencies{
		Runs:     store.Runs,
		Producer: producer,
		Pipeline: orchestrator,
		Sessions: store.Sessions,
		Logger:   logger,
	})
	api := handlers.NewAPI(batches)
	api.AddHealthCheck("postgres", store.Ping)
	api.AddHealthCheck("redis", analysisCache.Ping)

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	if cfg.WorkerEnabled {
		processor := worker.NewProcessor(consumer, store.Runs, batches, logger)
		go processor.Start(ctx)
		logger.Printf("worker enabled and started")
	} else {
		logger.Printf("worker disabled by configuration")
	}

	// Synchronous batches run inside the request, so the write timeout has to
	// cover a full pipeline run.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (queue.Producer, queue.Consumer, func()) {
	local := func() (queue.Producer, queue.Consumer, func()) {
		localQueue := queue.NewLocalQueue(cfg.QueueBufferSize, cfg.QueueMaxAttempts, logger)
		return localQueue, localQueue, func() {}
	}

	if cfg.QueueBackend != "redis" {
		logger.Printf("using local queue backend")
		return local()
	}
	if cfg.RedisAddr == "" {
		logger.Printf("QUEUE_BACKEND=redis without REDIS_ADDR, using local queue fallback")
		return local()
	}

	streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		Stream:      cfg.QueueStream,
		Group:       cfg.QueueGroup,
		Consumer:    cfg.QueueConsumer,
		MaxAttempts: cfg.QueueMaxAttempts,
	}, logger)
	if err != nil {
		logger.Printf("failed to initialize redis streams queue, fallback to local: %v", err)
		return local()
	}
	logger.Printf("redis streams queue initialized stream=%s group=%s", cfg.QueueStream, cfg.QueueGroup)
	return streams, streams, func() {
		_ = streams.Close()
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RishiKendai/provenance/internal/api"
	"github.com/RishiKendai/provenance/internal/app"
	"github.com/RishiKendai/provenance/internal/config"
	"github.com/RishiKendai/provenance/internal/configs/env"
	"github.com/RishiKendai/provenance/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/provenance/internal/infra/redis"
	"github.com/RishiKendai/provenance/internal/logger"
	"github.com/RishiKendai/provenance/internal/metrics"
	"github.com/RishiKendai/provenance/internal/plagiarism"
	"github.com/RishiKendai/provenance/internal/preprocess"
	"github.com/RishiKendai/provenance/internal/repository"
	"github.com/RishiKendai/provenance/internal/stream"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("Starting originality service")

	metrics.InitPrometheus()
	metricsServer := api.StartMetricsServer(cfg.MetricsPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect MongoDB
	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB client")
	}
	defer mongoClient.Close(context.Background())

	mongoRepo := repository.NewMongoRepository(mongoClient)
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
	}

	// Connect Redis
	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	documentRepo := repository.NewDocumentRepository(mongoRepo)
	reportRepo := repository.NewReportRepository(mongoRepo)
	referenceRepo := repository.NewReferenceRepository(mongoRepo)
	exactRepo := repository.NewExactRecordRepository(mongoRepo)

	components, err := app.Build(cfg, exactRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build analysis engine")
	}
	defer components.Close()

	if cfg.CorpusDir != "" {
		if _, err := os.Stat(cfg.CorpusDir); err == nil {
			results, err := components.Ingestor.IngestDir(ctx, cfg.CorpusDir, plagiarism.EntryTypeCorpus)
			if err != nil {
				log.Error().Err(err).Str("dir", cfg.CorpusDir).Msg("Startup corpus ingestion incomplete")
			}
			log.Info().Int("files", len(results)).Str("dir", cfg.CorpusDir).Msg("Startup corpus ingested")
		}
	}

	statusTracker := plagiarism.NewStatusTracker(redisClient.Client)
	producer := stream.NewProducer(redisClient.Client, cfg.RedisStreamKey)
	preprocessSvc := preprocess.NewService(documentRepo, producer, statusTracker)
	analysisSvc := plagiarism.NewService(components.Engine, documentRepo, referenceRepo, reportRepo, statusTracker)

	workerPool := plagiarism.NewWorkerPool(ctx)
	retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey, plagiarism.IsPermanent)

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
	consumer := stream.NewConsumer(
		redisClient.Client,
		cfg.RedisStreamKey,
		cfg.RedisConsumerGroup,
		consumerName,
		analysisSvc,
		workerPool,
		retryHandler,
		cfg.StreamRetentionDuration,
	)
	log.Info().Str("consumer_name", consumerName).Msg("Redis stream consumer initialized")

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Redis consumer error")
		}
	}()

	handler := api.NewHandler(api.Dependencies{
		Analyzer:   components.Engine,
		Documents:  preprocessSvc,
		Reports:    reportRepo,
		References: referenceRepo,
		Status:     statusTracker,
		Corpus:     components.Ingestor,
	}, cfg.MaxConcurrentCompute, cfg.ComputationTimeout)

	router := api.SetupRoutes(cfg, handler)
	srv := api.StartServer(router, cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	// Stop reading new messages before draining the pool; queued jobs still
	// finish and acknowledge.
	consumerCancel()
	<-consumerDone
	workerPool.Close()

	if err := api.ShutdownServer(metricsServer, 5*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}

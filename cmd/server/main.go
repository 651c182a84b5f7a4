package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"fxjournal/internal/analytics"
	"fxjournal/internal/api"
	"fxjournal/internal/config"
	"fxjournal/internal/database"
	"fxjournal/internal/importer"
	"fxjournal/internal/journal"
	"fxjournal/internal/kafka"
	"fxjournal/internal/metrics"
	"fxjournal/internal/timeutil"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(cfg.Import.MigrationsPath); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Redis is optional: without it analytics computes every request.
	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer cache.Close()
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ImportTopic)
	defer producer.Close()

	agg := metrics.NewAggregator(db, logger)
	journalSvc := journal.NewService(db, agg, logger)
	policy := timeutil.ParsePolicy(cfg.Import.TZPolicy)
	imp := importer.New(db, agg, producer, policy, logger)
	analyticsSvc := analytics.NewService(db, cache, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.FillsTopic, cfg.Kafka.GroupID, journalSvc, db, logger)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("kafka consumer stopped")
		}
	}()

	handler := api.NewHandler(db, journalSvc, imp, analyticsSvc)
	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: api.SetupRoutes(handler),
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	if err := consumer.Close(); err != nil {
		logger.Error().Err(err).Msg("kafka consumer close failed")
	}

	logger.Info().Msg("shutdown complete")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"hostelhub/internal/config"
	"hostelhub/internal/logger"
	"hostelhub/internal/mealplan"
	"hostelhub/internal/ocrclient"
	"hostelhub/internal/queue"
	"hostelhub/internal/store"
)

// The worker drains the job queue. Currently the only job type is weekly
// meal-plan text extraction; the HTTP process never blocks on the OCR
// collaborator.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database not reachable")
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var jobs queue.Queue
	switch cfg.QueueBackend {
	case "memory":
		// An in-memory queue is process-local; a separate worker binary will
		// never see the API's jobs. Still useful for poking at the handler.
		log.Warn().Msg("memory queue backend selected, worker will only see its own jobs")
		jobs = queue.NewInMemory(64)
	case "rabbit":
		rq, err := queue.NewRabbitQueue(cfg.AMQPURL, "hostelhub.jobs")
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq not reachable")
		}
		defer rq.Close()
		jobs = rq
	default:
		jobs = queue.NewRedisQueue(redisClient.Client, "hostelhub:jobs")
	}

	ocr := ocrclient.New(cfg.OCRServiceURL)
	if ocr.Enabled() {
		log.Info().Str("url", cfg.OCRServiceURL).Msg("text extraction collaborator configured")
	} else {
		log.Info().Msg("no text extraction collaborator, plans will be processed with empty text")
	}

	meals := mealplan.NewService(mealplan.NewRepository(db.Client), jobs, ocr, nil, log)

	messages, err := jobs.Consume(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("queue consume init failed")
	}

	log.Info().Str("backend", cfg.QueueBackend).Msg("worker started, waiting for jobs")
	for msg := range messages {
		switch msg.Type {
		case mealplan.JobExtract:
			if err := meals.RunExtraction(ctx, msg.Body); err != nil {
				log.Error().Err(err).Msg("extraction job failed")
			}
		default:
			log.Warn().Str("type", msg.Type).Msg("unknown job type dropped")
		}
	}

	log.Info().Msg("worker stopped")
}

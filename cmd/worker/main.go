package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scholar_notification_pipeline/internal/app"
	"scholar_notification_pipeline/internal/domain/notification"
	"scholar_notification_pipeline/internal/domain/query"
	"scholar_notification_pipeline/internal/infra/api"
	"scholar_notification_pipeline/internal/infra/config"
	idb "scholar_notification_pipeline/internal/infra/database"
	"scholar_notification_pipeline/internal/infra/logger"
	"scholar_notification_pipeline/internal/infra/mailer"
	"scholar_notification_pipeline/internal/infra/ops"
	"scholar_notification_pipeline/internal/infra/queue"
	"scholar_notification_pipeline/internal/infra/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	subscriberRepo := idb.NewPostgresSubscriberRepository(db)
	resultsRepo := idb.NewPostgresResultsRepository(db)
	kvRepo := idb.NewPostgresKeyValueRepository(db)

	searchClient := api.NewSearchClient(cfg.APIBaseURL, cfg.APIToken)
	identityClient := api.NewIdentityClient(cfg.APIBaseURL, cfg.APIToken)
	mailClient := mailer.NewSMTPClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailSender)

	taskQueue, err := queue.New(cfg.AMQPURL, cfg.QueueExchange, cfg.QueueName, log)
	if err != nil {
		log.Fatalf("Could not connect to task queue: %v", err)
	}
	defer taskQueue.Close()
	log.Info("Task queue connected and topology declared.")

	metrics := ops.NewMetrics()

	subscriberService := app.NewSubscriberService(subscriberRepo, identityClient, log)
	dedupService := app.NewDedupService(resultsRepo, log)
	taskService := app.NewTaskService(
		app.TaskPolicy{
			WindowDays:       cfg.StatefulResultsDays,
			TotalRetries:     cfg.TotalRetries,
			ResendDelay:      cfg.ResendDelay,
			IndexResendDelay: cfg.IndexResendDelay,
			MaxRowsDaily:     cfg.MaxRowsDaily,
			MaxRowsWeekly:    cfg.MaxRowsWeekly,
			UIBaseURL:        cfg.UIBaseURL,
			QueryOptions: query.Options{
				ArxivLookbackDays:   cfg.ArxivLookbackDays,
				AuthorsLookbackDays: cfg.AstroLookbackDays,
			},
		},
		subscriberService,
		dedupService,
		searchClient,
		identityClient,
		mailClient,
		taskQueue,
		metrics,
		log,
	)
	batchService := app.NewBatchService(subscriberService, identityClient, kvRepo, taskQueue, mailClient, metrics, log)

	batchScheduler := scheduler.NewBatchScheduler(batchService, log, cfg.CronSpecDaily, cfg.CronSpecWeekly)
	batchScheduler.Start()

	opsServer := ops.NewServer(cfg.OpsListenAddr, db, metrics, log)
	go opsServer.Start()

	consumeCtx, cancelConsume := context.WithCancel(context.Background())
	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		if err := taskQueue.Consume(consumeCtx, func(ctx context.Context, task notification.Task) {
			taskService.Process(ctx, task)
		}); err != nil {
			log.Errorf("Consumer stopped: %v", err)
		}
	}()

	log.Info("Application setup complete. Worker is running.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker...")
	cancelConsume()
	<-consumeDone
	batchScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	opsServer.Shutdown(shutdownCtx)
	log.Info("Worker shut down gracefully.")
}

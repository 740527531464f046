package main

import (
	"context"
	"flag"
	"strconv"
	"strings"
	"time"

	"scholar_notification_pipeline/internal/app"
	"scholar_notification_pipeline/internal/domain/notification"
	"scholar_notification_pipeline/internal/infra/api"
	"scholar_notification_pipeline/internal/infra/config"
	idb "scholar_notification_pipeline/internal/infra/database"
	"scholar_notification_pipeline/internal/infra/logger"
	"scholar_notification_pipeline/internal/infra/mailer"
	"scholar_notification_pipeline/internal/infra/ops"
	"scholar_notification_pipeline/internal/infra/queue"

	"github.com/sirupsen/logrus"
)

func main() {
	var (
		sinceDate  = flag.String("since", "", "Process all new/updated users since this date (RFC3339), plus existing users")
		userIDs    = flag.String("uid", "", "Comma-delimited list of user IDs to run notifications for")
		emails     = flag.String("email", "", "Comma-delimited list of user emails to run notifications for")
		daily      = flag.Bool("d", false, "Process daily notifications")
		weekly     = flag.Bool("w", false, "Process weekly notifications")
		testSendTo = flag.String("t", "", "For testing; process the given users but send output to this address")
		adminEmail = flag.String("a", "", "Send email to this address at beginning and end of processing")
		force      = flag.Bool("force", false, "Bypass the already-sent-today gate")
		wait       = flag.Duration("wait", 0, "Wait this long before processing (post-ingest settling time)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get()

	if !*daily && !*weekly {
		log.Fatal("Nothing to do: pass -d and/or -w")
	}

	if *wait > 0 {
		log.Infof("Waiting %s before processing...", *wait)
		time.Sleep(*wait)
	}

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()

	taskQueue, err := queue.New(cfg.AMQPURL, cfg.QueueExchange, cfg.QueueName, log)
	if err != nil {
		log.Fatalf("Could not connect to task queue: %v", err)
	}
	defer taskQueue.Close()

	subscriberRepo := idb.NewPostgresSubscriberRepository(db)
	kvRepo := idb.NewPostgresKeyValueRepository(db)
	identityClient := api.NewIdentityClient(cfg.APIBaseURL, cfg.APIToken)
	mailClient := mailer.NewSMTPClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailSender)

	subscriberService := app.NewSubscriberService(subscriberRepo, identityClient, log)
	batchService := app.NewBatchService(subscriberService, identityClient, kvRepo, taskQueue, mailClient, ops.NewMetrics(), log)

	opts := app.RunOptions{
		Since:      *sinceDate,
		UserIDs:    parseIDs(*userIDs, log),
		Emails:     parseList(*emails),
		TestSendTo: *testSendTo,
		AdminEmail: *adminEmail,
		Force:      *force,
	}

	ctx := context.Background()
	if *daily {
		opts.Frequency = notification.FrequencyDaily
		if err := batchService.Run(ctx, opts); err != nil {
			log.Fatalf("Daily batch run failed: %v", err)
		}
	}
	if *weekly {
		opts.Frequency = notification.FrequencyWeekly
		if err := batchService.Run(ctx, opts); err != nil {
			log.Fatalf("Weekly batch run failed: %v", err)
		}
	}
}

func parseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseIDs(raw string, log *logrus.Logger) []int64 {
	ids := make([]int64, 0)
	for _, p := range parseList(raw) {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			log.Fatalf("Invalid user ID %q: %v", p, err)
		}
		ids = append(ids, id)
	}
	return ids
}

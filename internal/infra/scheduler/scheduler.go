package scheduler

import (
	"context"
	"time"

	"scholar_notification_pipeline/internal/app"
	"scholar_notification_pipeline/internal/domain/notification"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// BatchScheduler triggers the batch driver's fan-out passes on the
// configured cron specs, one job per cadence.
type BatchScheduler struct {
	cronEngine     *cron.Cron
	batch          *app.BatchService
	logger         *logrus.Logger
	cronSpecDaily  string
	cronSpecWeekly string
}

func NewBatchScheduler(batch *app.BatchService, logger *logrus.Logger, cronSpecDaily, cronSpecWeekly string) *BatchScheduler {
	return &BatchScheduler{
		cronEngine:     cron.New(cron.WithLocation(time.UTC)),
		batch:          batch,
		logger:         logger,
		cronSpecDaily:  cronSpecDaily,
		cronSpecWeekly: cronSpecWeekly,
	}
}

func (s *BatchScheduler) Start() {
	s.logger.Info("Starting batch scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecDaily, func() {
		s.runBatch(notification.FrequencyDaily)
	})
	if err != nil {
		s.logger.Fatalf("Could not add daily batch cron job: %v", err)
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecWeekly, func() {
		s.runBatch(notification.FrequencyWeekly)
	})
	if err != nil {
		s.logger.Fatalf("Could not add weekly batch cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Batch scheduler started with daily and weekly jobs.")
}

func (s *BatchScheduler) runBatch(freq notification.Frequency) {
	s.logger.Infof("Cron job triggered for %s batch processing.", freq)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := s.batch.Run(ctx, app.RunOptions{Frequency: freq}); err != nil {
		s.logger.Errorf("Error during %s batch processing: %v", freq, err)
	}
}

func (s *BatchScheduler) Stop() {
	s.logger.Info("Stopping batch scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Batch scheduler gracefully stopped.")
}

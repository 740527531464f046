package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scholar_notification_pipeline/internal/domain/identity"
	"scholar_notification_pipeline/internal/domain/mail"
	"scholar_notification_pipeline/internal/domain/notification"
	"scholar_notification_pipeline/internal/domain/storage"
	idb "scholar_notification_pipeline/internal/infra/database"
	"scholar_notification_pipeline/internal/infra/ops"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// defaultSince is the enumeration epoch used when no cursor exists yet.
const defaultSince = "1971-01-01T12:00:00Z"

// backpressureDelay is the in-process pause before the single
// resubmission attempt on queue submission failure.
const backpressureDelay = 2 * time.Second

// RunOptions are the batch driver's inputs, mirroring its CLI surface.
type RunOptions struct {
	// Since overrides the persisted cursor (RFC3339). Resolved from the
	// cursor store when empty.
	Since     string
	UserIDs   []int64
	Emails    []string
	Frequency notification.Frequency
	// TestSendTo overrides the recipient on explicitly targeted tasks.
	TestSendTo string
	// AdminEmail, when set, receives a note at the start and end of a
	// full enumeration pass.
	AdminEmail string
	Force      bool
}

// BatchService enumerates subscribers needing processing and fans out
// one task per user. The cursor tracks enumeration completeness, not
// delivery completeness: per-user failures are owned by each task's own
// retry policy, never by re-enumeration.
type BatchService struct {
	subscribers *SubscriberService
	identity    identity.Client
	kv          storage.Repository
	queue       notification.Submitter
	mailer      mail.Client
	metrics     *ops.Metrics
	logger      *logrus.Logger
	now         func() time.Time
	sleep       func(time.Duration)
}

func NewBatchService(
	subscribers *SubscriberService,
	ic identity.Client,
	kv storage.Repository,
	q notification.Submitter,
	mc mail.Client,
	metrics *ops.Metrics,
	logger *logrus.Logger,
) *BatchService {
	return &BatchService{
		subscribers: subscribers,
		identity:    ic,
		kv:          kv,
		queue:       q,
		mailer:      mc,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// Run performs one fan-out pass. Exit is "enumeration completed",
// regardless of downstream per-user task outcomes.
func (s *BatchService) Run(ctx context.Context, opts RunOptions) error {
	if !opts.Frequency.IsValid() {
		return fmt.Errorf("invalid frequency %q", opts.Frequency)
	}

	// Targeted reprocessing bypasses enumeration entirely.
	if len(opts.UserIDs) > 0 || len(opts.Emails) > 0 {
		return s.runExplicit(ctx, opts)
	}

	if opts.AdminEmail != "" {
		s.notifyAdmin(opts.AdminEmail, fmt.Sprintf("Scholar Alerts %s processing has started", opts.Frequency),
			fmt.Sprintf("Processing started for %s", s.now().Format(time.RFC3339)))
	}

	since, err := s.resolveSince(ctx, opts)
	if err != nil {
		return err
	}
	s.logger.Infof("Processing %s notifications for users since %s", opts.Frequency, since.Format(time.RFC3339))

	batchStart := s.now()
	users, err := s.subscribers.ActiveUsers(ctx, since, opts.Frequency)
	if err != nil {
		return fmt.Errorf("failed to enumerate users: %w", err)
	}

	for _, userID := range users {
		task := notification.Task{
			TaskID:    uuid.NewString(),
			UserID:    userID,
			Frequency: opts.Frequency,
			Force:     opts.Force,
		}
		if err := s.queue.Submit(ctx, task, 0); err != nil {
			// Likely backpressure; pause briefly and retry once.
			s.logger.Warnf("Task submission for user %d failed (%v); retrying once", userID, err)
			s.sleep(backpressureDelay)
			if err := s.queue.Submit(ctx, task, 0); err != nil {
				s.logger.Errorf("Giving up on task submission for user %d: %v", userID, err)
			}
		}
	}

	// Advance the cursor to the batch start unconditionally: it records
	// "enumeration as of", not "delivery completed".
	if err := s.kv.Put(ctx, cursorKey(opts.Frequency), batchStart.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to advance processing cursor: %w", err)
	}

	s.metrics.BatchRuns.WithLabelValues(string(opts.Frequency)).Inc()
	s.logger.Infof("Done submitting %s processing tasks for %d users", opts.Frequency, len(users))

	if opts.AdminEmail != "" {
		s.notifyAdmin(opts.AdminEmail, fmt.Sprintf("Scholar Alerts %s processing has finished", opts.Frequency),
			fmt.Sprintf("Processing ended for %s", s.now().Format(time.RFC3339)))
	}
	return nil
}

func (s *BatchService) runExplicit(ctx context.Context, opts RunOptions) error {
	ids := append([]int64{}, opts.UserIDs...)
	for _, email := range opts.Emails {
		id, err := s.identity.UserIDByEmail(ctx, email)
		if err != nil {
			s.logger.Errorf("Could not resolve user for email %s: %v", email, err)
			continue
		}
		ids = append(ids, id)
	}

	for _, userID := range ids {
		task := notification.Task{
			TaskID:     uuid.NewString(),
			UserID:     userID,
			Frequency:  opts.Frequency,
			Force:      true,
			TestSendTo: opts.TestSendTo,
		}
		if err := s.queue.Submit(ctx, task, 0); err != nil {
			s.logger.Errorf("Failed to submit task for user %d: %v", userID, err)
		}
	}
	s.logger.Infof("Done (just the %d supplied users)", len(ids))
	return nil
}

func (s *BatchService) resolveSince(ctx context.Context, opts RunOptions) (time.Time, error) {
	raw := opts.Since
	if raw == "" {
		stored, err := s.kv.Get(ctx, cursorKey(opts.Frequency))
		switch {
		case err == nil:
			raw = stored
		case errors.Is(err, idb.ErrKeyNotFound):
			raw = defaultSince
		default:
			return time.Time{}, fmt.Errorf("failed to read processing cursor: %w", err)
		}
	}

	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since date %q: %w", raw, err)
	}
	return since, nil
}

func (s *BatchService) notifyAdmin(addr, subject, body string) {
	if err := s.mailer.Send(addr, subject, body, body); err != nil {
		s.logger.Warnf("Failed to send admin notification to %s: %v", addr, err)
	}
}

func cursorKey(freq notification.Frequency) string {
	if freq == notification.FrequencyWeekly {
		return storage.KeyLastProcessWeekly
	}
	return storage.KeyLastProcessDaily
}

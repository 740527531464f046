package app

import (
	"context"
	"fmt"
	"time"

	"scholar_notification_pipeline/internal/domain/identity"
	"scholar_notification_pipeline/internal/domain/notification"
	"scholar_notification_pipeline/internal/domain/subscriber"

	"github.com/sirupsen/logrus"
)

// SubscriberService tracks per-subscriber notification state: the
// already-sent-today gate, the last-sent cursors, and enumeration of
// users needing processing.
type SubscriberService struct {
	subscribers subscriber.Repository
	identity    identity.Client
	logger      *logrus.Logger
	now         func() time.Time
}

func NewSubscriberService(sr subscriber.Repository, ic identity.Client, logger *logrus.Logger) *SubscriberService {
	return &SubscriberService{subscribers: sr, identity: ic, logger: logger, now: time.Now}
}

// ActiveUsers returns the union of locally known subscribers whose
// cadence state is unset or stale and users the identity service
// reports as created/updated since the given time, upserting any
// unknown reported user. An identity-service failure degrades to the
// local set only.
func (s *SubscriberService) ActiveUsers(ctx context.Context, since time.Time, freq notification.Frequency) ([]int64, error) {
	local, err := s.subscribers.ListPending(ctx, freq, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending subscribers: %w", err)
	}

	seen := make(map[int64]struct{}, len(local))
	users := make([]int64, 0, len(local))
	for _, id := range local {
		seen[id] = struct{}{}
		users = append(users, id)
	}

	reported, err := s.identity.UsersSince(ctx, since)
	if err != nil {
		s.logger.Warnf("Error getting new notification users from identity service: %v", err)
		return users, nil
	}

	for _, id := range reported {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, err := s.subscribers.Upsert(ctx, id); err != nil {
			s.logger.Errorf("Failed to upsert reported subscriber %d: %v", id, err)
			continue
		}
		seen[id] = struct{}{}
		users = append(users, id)
	}

	return users, nil
}

// Gate fetches (lazily creating) the subscriber and enforces the
// once-per-calendar-date rule for the cadence. Returns ErrAlreadySent
// when the cadence already went out today and force is off; with force
// on, it logs and lets the caller proceed.
func (s *SubscriberService) Gate(ctx context.Context, userID int64, freq notification.Frequency, force bool) (*subscriber.Subscriber, error) {
	sub, err := s.subscribers.Upsert(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscriber %d: %w", userID, err)
	}

	lastSent := sub.LastSentDaily
	if freq == notification.FrequencyWeekly {
		lastSent = sub.LastSentWeekly
	}

	if lastSent.Valid && sameDate(lastSent.Time, s.now()) {
		if !force {
			return nil, ErrAlreadySent
		}
		s.logger.Infof("%s notification for user %d already sent today, but force mode is on", freq, userID)
	}
	return sub, nil
}

// RecordSent advances the cadence's last-sent timestamp. Called only
// after a confirmed successful delivery; this is the single point that
// closes the already-sent gate.
func (s *SubscriberService) RecordSent(ctx context.Context, userID int64, freq notification.Frequency) error {
	if err := s.subscribers.SetLastSent(ctx, userID, freq, s.now()); err != nil {
		return fmt.Errorf("failed to record sent for user %d: %w", userID, err)
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

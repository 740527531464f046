package app

import (
	"context"
	"fmt"
	"time"

	"scholar_notification_pipeline/internal/domain/results"

	"github.com/sirupsen/logrus"
)

// DedupService decides which freshly fetched results are new for a
// (subscriber, query) pair and persists exactly the subset needed to
// avoid re-notifying on overlap.
type DedupService struct {
	results results.Repository
	logger  *logrus.Logger
	now     func() time.Time
}

func NewDedupService(rr results.Repository, logger *logrus.Logger) *DedupService {
	return &DedupService{results: rr, logger: logger, now: time.Now}
}

// NewResults returns the subset of input identifiers not seen before
// the lookback window and records the strictly-unseen ones.
//
// Identifiers stored within the window are still returned on every call
// until they age past it: a batch delivered yesterday stays visible
// today. That re-surfacing is intentional, it keeps results visible
// even when an identifier is later amended upstream.
//
// Only identifiers absent from every batch, old or recent, are written
// back, so each identifier is stored at most once per rolling window.
// Empty sets are never stored.
func (s *DedupService) NewResults(ctx context.Context, subscriberID int64, key results.QueryKey, input []string, windowDays int) ([]string, error) {
	if err := key.Validate(); err != nil {
		s.logger.Warnf("Cannot dedup results for subscriber %d: %v", subscriberID, err)
		return nil, err
	}

	now := s.now()
	cutoff := now.AddDate(0, 0, -windowDays)

	old, err := s.results.ListCreatedBefore(ctx, subscriberID, key, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored results before cutoff: %w", err)
	}
	seenOld := unionIDs(old)

	candidateNew := make([]string, 0, len(input))
	for _, id := range input {
		if _, ok := seenOld[id]; !ok {
			candidateNew = append(candidateNew, id)
		}
	}

	recent, err := s.results.ListCreatedSince(ctx, subscriberID, key, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored results since cutoff: %w", err)
	}
	seenRecent := unionIDs(recent)

	toStore := make([]string, 0, len(candidateNew))
	for _, id := range candidateNew {
		if _, ok := seenRecent[id]; !ok {
			toStore = append(toStore, id)
		}
	}

	if len(toStore) > 0 {
		batch := &results.StoredResult{
			SubscriberID: subscriberID,
			Key:          key,
			ResultIDs:    toStore,
			Created:      now,
		}
		if err := s.results.Insert(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to store new results: %w", err)
		}
		s.logger.Debugf("Stored %d new result IDs for subscriber %d", len(toStore), subscriberID)
	}

	return candidateNew, nil
}

func unionIDs(batches []*results.StoredResult) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, b := range batches {
		for _, id := range b.ResultIDs {
			ids[id] = struct{}{}
		}
	}
	return ids
}

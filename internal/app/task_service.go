package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"scholar_notification_pipeline/internal/domain/identity"
	"scholar_notification_pipeline/internal/domain/mail"
	"scholar_notification_pipeline/internal/domain/notification"
	"scholar_notification_pipeline/internal/domain/query"
	"scholar_notification_pipeline/internal/domain/results"
	"scholar_notification_pipeline/internal/domain/search"
	"scholar_notification_pipeline/internal/infra/ops"

	"github.com/sirupsen/logrus"
)

// resultFields are the document fields fetched for rendering.
const resultFields = "bibcode,title,author_norm,year,bibstem"

// TaskPolicy bundles the retry and presentation policy for task processing.
type TaskPolicy struct {
	WindowDays       int
	TotalRetries     int
	ResendDelay      time.Duration
	IndexResendDelay time.Duration
	MaxRowsDaily     int
	MaxRowsWeekly    int
	UIBaseURL        string
	QueryOptions     query.Options
}

// PayloadEntry is the rendered unit for one (sub-)query: kept even when
// Results is empty so the notification shows every configured query.
type PayloadEntry struct {
	Name     string
	QueryURL string
	Query    string
	Results  []search.Document
}

// TaskService drives one notification attempt for one subscriber
// through the fetch -> dedup -> render -> send -> record sequence,
// rescheduling through the queue on retryable failures.
type TaskService struct {
	policy      TaskPolicy
	subscribers *SubscriberService
	dedup       *DedupService
	search      search.Client
	identity    identity.Client
	mailer      mail.Client
	queue       notification.Submitter
	metrics     *ops.Metrics
	logger      *logrus.Logger
	now         func() time.Time
}

func NewTaskService(
	policy TaskPolicy,
	subscribers *SubscriberService,
	dedup *DedupService,
	sc search.Client,
	ic identity.Client,
	mc mail.Client,
	q notification.Submitter,
	metrics *ops.Metrics,
	logger *logrus.Logger,
) *TaskService {
	return &TaskService{
		policy:      policy,
		subscribers: subscribers,
		dedup:       dedup,
		search:      sc,
		identity:    ic,
		mailer:      mc,
		queue:       q,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Process handles one task message. Every exit path is an explicit
// return after logging; nothing propagates to the queue infrastructure.
func (s *TaskService) Process(ctx context.Context, task notification.Task) {
	// 1. Input validation: malformed messages are discarded, not retried.
	if task.UserID == 0 {
		s.logger.Errorf("No user ID received for task %+v", task)
		s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeDiscarded).Inc()
		return
	}
	if !task.Frequency.IsValid() {
		s.logger.Errorf("No valid frequency received for task %+v", task)
		s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeDiscarded).Inc()
		return
	}

	log := s.logger.WithFields(logrus.Fields{
		"task_id":   task.TaskID,
		"user":      task.UserID,
		"frequency": task.Frequency,
	})

	// 2. Already-sent gate.
	sub, err := s.subscribers.Gate(ctx, task.UserID, task.Frequency, task.Force)
	if err != nil {
		if errors.Is(err, ErrAlreadySent) {
			log.Infof("%s notification already sent today; skipping", task.Frequency)
			s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeSkipped).Inc()
			return
		}
		log.Errorf("Gate check failed: %v", err)
		s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeFailed).Inc()
		return
	}

	// 3. Optional index-freshness probe. Uses its own retry counter and
	// the longer backoff window: the index not having caught up yet is
	// not a generic failure.
	if task.TestBibcode != "" {
		probe, err := s.search.Search(ctx, fmt.Sprintf("identifier:%q", task.TestBibcode), "", "bibcode", 1)
		if err != nil || probe.NumFound == 0 {
			if task.SolrRetries >= s.policy.TotalRetries {
				log.Errorf("Index freshness probe for %q exhausted %d retries; giving up", task.TestBibcode, task.SolrRetries)
				s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeFailed).Inc()
				return
			}
			log.Warnf("Index not yet fresh for %q (err: %v); rescheduling", task.TestBibcode, err)
			s.reschedule(ctx, log, task.WithSolrRetry(), s.policy.IndexResendDelay, ops.RetryIndex)
			return
		}
	}

	// 4. Fetch the saved-query setup.
	items, err := s.search.FetchSetup(ctx, task.UserID)
	if err != nil {
		if task.Retries >= s.policy.TotalRetries {
			log.Errorf("Setup fetch exhausted %d retries: %v", task.Retries, err)
			s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeFailed).Inc()
			return
		}
		log.Warnf("Setup fetch failed (%v); rescheduling", err)
		s.reschedule(ctx, log, task.WithSetupRetry(), s.policy.ResendDelay, ops.RetrySetup)
		return
	}

	// 5. Execute each matching query, routing stateful ones through dedup.
	payload, rescheduled := s.executeQueries(ctx, log, task, items)
	if rescheduled {
		return
	}

	// 6. No-op short-circuit: nothing to say, nothing sent, no state mutated.
	if !hasResults(payload) {
		log.Infof("No new results for any of %d payload entries; no notification sent", len(payload))
		s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeSkipped).Inc()
		return
	}

	// 7/8. Render and send.
	recipient := task.TestSendTo
	if recipient == "" {
		recipient, err = s.identity.UserEmail(ctx, task.UserID)
		if err != nil {
			s.retrySend(ctx, log, task, fmt.Errorf("failed to resolve recipient: %w", err))
			return
		}
	}

	subject := fmt.Sprintf("Scholar Alerts: %s notification, %s", task.Frequency, s.now().Format("January 2, 2006"))
	plain := renderPlain(payload)
	html := renderHTML(payload, recipient)

	if err := s.mailer.Send(recipient, subject, plain, html); err != nil {
		s.retrySend(ctx, log, task, err)
		return
	}
	s.metrics.EmailsSent.Inc()

	// 9. Record: the single point that advances the already-sent gate.
	// A crash between send and record means a possible duplicate on a
	// forced re-run; accepted at-least-once behavior.
	if err := s.subscribers.RecordSent(ctx, task.UserID, task.Frequency); err != nil {
		log.Errorf("Notification sent to %s but last-sent not recorded: %v", recipient, err)
		s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeFailed).Inc()
		return
	}

	log.Infof("Notification sent to %s (%d queries, subscriber created %s)",
		recipient, len(payload), sub.Created.Format("2006-01-02"))
	s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeSent).Inc()
}

// executeQueries builds the payload for every active setup item
// matching the task's cadence. A fetch failure reschedules the whole
// attempt (rescheduled=true) until the query-retry counter is
// exhausted; after that the failing query is skipped so a partial
// payload can still go out.
func (s *TaskService) executeQueries(ctx context.Context, log *logrus.Entry, task notification.Task, items []query.Item) (payload []PayloadEntry, rescheduled bool) {
	rows := s.policy.MaxRowsWeekly
	if task.Frequency == notification.FrequencyDaily {
		rows = s.policy.MaxRowsDaily
	}

	for _, item := range items {
		if !item.Active || item.Frequency != task.Frequency {
			continue
		}

		variant, err := query.Classify(item, s.policy.QueryOptions)
		if err != nil {
			log.Errorf("Skipping unusable setup item: %v", err)
			continue
		}

		for _, c := range variant.Build(s.now()) {
			var res *search.Result
			if c.QID != "" {
				res, err = s.search.ExecuteStoredQuery(ctx, c.QID, resultFields, rows, c.Sort)
			} else {
				res, err = s.search.Search(ctx, c.Query, c.Sort, resultFields, rows)
			}
			if err != nil {
				if task.QueryRetries >= s.policy.TotalRetries {
					log.Warnf("Query %q exhausted %d retries (%v); skipping it", c.Name, task.QueryRetries, err)
					continue
				}
				log.Warnf("Query %q failed (%v); rescheduling attempt", c.Name, err)
				s.reschedule(ctx, log, task.WithQueryRetry(), s.policy.ResendDelay, ops.RetryQuery)
				return nil, true
			}

			docs := res.Docs
			if item.Stateful {
				key := results.ForSetupID(item.SetupID)
				if item.HasQID() {
					key = results.ForQID(item.QID)
				}
				newIDs, err := s.dedup.NewResults(ctx, task.UserID, key, bibcodes(docs), s.policy.WindowDays)
				if err != nil {
					log.Errorf("Dedup failed for query %q: %v", c.Name, err)
					s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeFailed).Inc()
					return nil, true
				}
				docs = filterDocs(docs, newIDs)
			}

			queryText := c.Query
			if queryText == "" {
				queryText = res.Params["q"]
			}
			payload = append(payload, PayloadEntry{
				Name:     c.Name,
				QueryURL: s.browsableURL(c),
				Query:    queryText,
				Results:  docs,
			})
		}
	}
	return payload, false
}

func (s *TaskService) retrySend(ctx context.Context, log *logrus.Entry, task notification.Task, cause error) {
	if task.SendRetries >= s.policy.TotalRetries {
		log.Errorf("Delivery exhausted %d retries: %v", task.SendRetries, cause)
		s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeFailed).Inc()
		return
	}
	log.Warnf("Delivery failed (%v); rescheduling", cause)
	s.reschedule(ctx, log, task.WithSendRetry(), s.policy.ResendDelay, ops.RetrySend)
}

func (s *TaskService) reschedule(ctx context.Context, log *logrus.Entry, task notification.Task, delay time.Duration, class string) {
	if err := s.queue.Submit(ctx, task, delay); err != nil {
		log.Errorf("Failed to reschedule task: %v", err)
		s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeFailed).Inc()
		return
	}
	s.metrics.TaskRetries.WithLabelValues(class).Inc()
	s.metrics.TasksProcessed.WithLabelValues(ops.OutcomeRetried).Inc()
}

func (s *TaskService) browsableURL(c query.Concrete) string {
	if c.QID != "" {
		return fmt.Sprintf("%s/search/q=docs(%s)", s.policy.UIBaseURL, c.QID)
	}
	return fmt.Sprintf("%s/search/q=%s&sort=%s", s.policy.UIBaseURL, url.QueryEscape(c.Query), url.QueryEscape(c.Sort))
}

func hasResults(payload []PayloadEntry) bool {
	for _, p := range payload {
		if len(p.Results) > 0 {
			return true
		}
	}
	return false
}

func bibcodes(docs []search.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.Bibcode)
	}
	return ids
}

func filterDocs(docs []search.Document, keep []string) []search.Document {
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	out := make([]search.Document, 0, len(docs))
	for _, d := range docs {
		if _, ok := keepSet[d.Bibcode]; ok {
			out = append(out, d)
		}
	}
	return out
}

package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scholar_notification_pipeline/internal/domain/notification"
	"scholar_notification_pipeline/internal/domain/query"
	"scholar_notification_pipeline/internal/domain/results"
	"scholar_notification_pipeline/internal/domain/search"
	"scholar_notification_pipeline/internal/domain/subscriber"
	idb "scholar_notification_pipeline/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// --- subscriber.Repository ---

type fakeSubscriberRepo struct {
	subs map[int64]*subscriber.Subscriber
	now  func() time.Time
}

func newFakeSubscriberRepo(now func() time.Time) *fakeSubscriberRepo {
	return &fakeSubscriberRepo{subs: make(map[int64]*subscriber.Subscriber), now: now}
}

func (r *fakeSubscriberRepo) Upsert(_ context.Context, id int64) (*subscriber.Subscriber, error) {
	if s, ok := r.subs[id]; ok {
		cp := *s
		return &cp, nil
	}
	s := &subscriber.Subscriber{ID: id, Created: r.now()}
	r.subs[id] = s
	cp := *s
	return &cp, nil
}

func (r *fakeSubscriberRepo) GetByID(_ context.Context, id int64) (*subscriber.Subscriber, error) {
	s, ok := r.subs[id]
	if !ok {
		return nil, idb.ErrSubscriberNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubscriberRepo) ListPending(_ context.Context, freq notification.Frequency, before time.Time) ([]int64, error) {
	ids := make([]int64, 0)
	for id, s := range r.subs {
		last := s.LastSentDaily
		if freq == notification.FrequencyWeekly {
			last = s.LastSentWeekly
		}
		if !last.Valid || last.Time.Before(before) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeSubscriberRepo) SetLastSent(_ context.Context, id int64, freq notification.Frequency, sentAt time.Time) error {
	s, ok := r.subs[id]
	if !ok {
		return idb.ErrSubscriberNotFound
	}
	if freq == notification.FrequencyWeekly {
		s.LastSentWeekly = sql.NullTime{Time: sentAt, Valid: true}
	} else {
		s.LastSentDaily = sql.NullTime{Time: sentAt, Valid: true}
	}
	return nil
}

// --- results.Repository ---

type fakeResultsRepo struct {
	batches   []*results.StoredResult
	insertErr error
}

func (r *fakeResultsRepo) ListCreatedBefore(_ context.Context, subscriberID int64, key results.QueryKey, cutoff time.Time) ([]*results.StoredResult, error) {
	return r.list(subscriberID, key, func(created time.Time) bool { return created.Before(cutoff) }), nil
}

func (r *fakeResultsRepo) ListCreatedSince(_ context.Context, subscriberID int64, key results.QueryKey, cutoff time.Time) ([]*results.StoredResult, error) {
	return r.list(subscriberID, key, func(created time.Time) bool { return !created.Before(cutoff) }), nil
}

func (r *fakeResultsRepo) list(subscriberID int64, key results.QueryKey, match func(time.Time) bool) []*results.StoredResult {
	out := make([]*results.StoredResult, 0)
	for _, b := range r.batches {
		if b.SubscriberID == subscriberID && b.Key == key && match(b.Created) {
			out = append(out, b)
		}
	}
	return out
}

func (r *fakeResultsRepo) Insert(_ context.Context, sr *results.StoredResult) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	cp := *sr
	r.batches = append(r.batches, &cp)
	return nil
}

// --- identity.Client ---

type fakeIdentity struct {
	usersSince    []int64
	usersSinceErr error
	emails        map[int64]string
	idsByEmail    map[string]int64
}

func (c *fakeIdentity) UsersSince(context.Context, time.Time) ([]int64, error) {
	if c.usersSinceErr != nil {
		return nil, c.usersSinceErr
	}
	return c.usersSince, nil
}

func (c *fakeIdentity) UserEmail(_ context.Context, userID int64) (string, error) {
	email, ok := c.emails[userID]
	if !ok {
		return "", fmt.Errorf("no email for user %d", userID)
	}
	return email, nil
}

func (c *fakeIdentity) UserIDByEmail(_ context.Context, email string) (int64, error) {
	id, ok := c.idsByEmail[email]
	if !ok {
		return 0, fmt.Errorf("no user for email %s", email)
	}
	return id, nil
}

// --- search.Client ---

type fakeSearch struct {
	setup     []query.Item
	setupErr  error
	stored    map[string]*search.Result // by qid
	storedErr map[string]error
	searched  map[string]*search.Result // by query text
	searchErr map[string]error
}

func newFakeSearch() *fakeSearch {
	return &fakeSearch{
		stored:    make(map[string]*search.Result),
		storedErr: make(map[string]error),
		searched:  make(map[string]*search.Result),
		searchErr: make(map[string]error),
	}
}

func (c *fakeSearch) ExecuteStoredQuery(_ context.Context, qid string, _ string, _ int, _ string) (*search.Result, error) {
	if err := c.storedErr[qid]; err != nil {
		return nil, err
	}
	if res, ok := c.stored[qid]; ok {
		return res, nil
	}
	return &search.Result{}, nil
}

func (c *fakeSearch) Search(_ context.Context, q, _, _ string, _ int) (*search.Result, error) {
	if err := c.searchErr[q]; err != nil {
		return nil, err
	}
	if res, ok := c.searched[q]; ok {
		return res, nil
	}
	return &search.Result{}, nil
}

func (c *fakeSearch) FetchSetup(context.Context, int64) ([]query.Item, error) {
	if c.setupErr != nil {
		return nil, c.setupErr
	}
	return c.setup, nil
}

// --- mail.Client ---

type sentMail struct {
	Recipient string
	Subject   string
	Plain     string
	HTML      string
}

type fakeMailer struct {
	sent    []sentMail
	sendErr error
}

func (c *fakeMailer) Send(recipient, subject, plain, html string) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, sentMail{Recipient: recipient, Subject: subject, Plain: plain, HTML: html})
	return nil
}

// --- notification.Submitter ---

type submission struct {
	Task  notification.Task
	Delay time.Duration
}

type fakeQueue struct {
	submissions []submission
	errs        []error // popped per Submit call; nil entries succeed
}

func (q *fakeQueue) Submit(_ context.Context, task notification.Task, delay time.Duration) error {
	if len(q.errs) > 0 {
		err := q.errs[0]
		q.errs = q.errs[1:]
		if err != nil {
			return err
		}
	}
	q.submissions = append(q.submissions, submission{Task: task, Delay: delay})
	return nil
}

// --- storage.Repository ---

type fakeKV struct {
	values map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: make(map[string]string)}
}

func (r *fakeKV) Get(_ context.Context, key string) (string, error) {
	v, ok := r.values[key]
	if !ok {
		return "", idb.ErrKeyNotFound
	}
	return v, nil
}

func (r *fakeKV) Put(_ context.Context, key, value string) error {
	r.values[key] = value
	return nil
}

package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scholar_notification_pipeline/internal/domain/notification"
	"scholar_notification_pipeline/internal/domain/storage"
	"scholar_notification_pipeline/internal/domain/subscriber"
	"scholar_notification_pipeline/internal/infra/ops"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchFixture struct {
	svc    *BatchService
	subs   *fakeSubscriberRepo
	ident  *fakeIdentity
	kv     *fakeKV
	queue  *fakeQueue
	mailer *fakeMailer
	now    time.Time
	slept  []time.Duration
}

func newBatchFixture() *batchFixture {
	now := time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	f := &batchFixture{
		subs:   newFakeSubscriberRepo(clock),
		ident:  &fakeIdentity{},
		kv:     newFakeKV(),
		queue:  &fakeQueue{},
		mailer: &fakeMailer{},
		now:    now,
	}

	log := testLogger()
	subSvc := NewSubscriberService(f.subs, f.ident, log)
	subSvc.now = clock
	f.svc = NewBatchService(subSvc, f.ident, f.kv, f.queue, f.mailer, ops.NewMetrics(), log)
	f.svc.now = clock
	f.svc.sleep = func(d time.Duration) { f.slept = append(f.slept, d) }
	return f
}

func TestRunRejectsInvalidFrequency(t *testing.T) {
	f := newBatchFixture()
	err := f.svc.Run(context.Background(), RunOptions{Frequency: "hourly"})
	assert.Error(t, err)
}

func TestRunFansOutOneTaskPerUser(t *testing.T) {
	f := newBatchFixture()
	f.subs.subs[1] = &subscriber.Subscriber{ID: 1}
	f.subs.subs[2] = &subscriber.Subscriber{ID: 2}

	err := f.svc.Run(context.Background(), RunOptions{Frequency: notification.FrequencyDaily})
	require.NoError(t, err)

	require.Len(t, f.queue.submissions, 2)
	ids := []int64{f.queue.submissions[0].Task.UserID, f.queue.submissions[1].Task.UserID}
	assert.ElementsMatch(t, []int64{1, 2}, ids)
	for _, s := range f.queue.submissions {
		assert.Equal(t, notification.FrequencyDaily, s.Task.Frequency)
		assert.NotEmpty(t, s.Task.TaskID)
		assert.Zero(t, s.Delay)
		assert.False(t, s.Task.Force)
	}
}

func TestRunAdvancesCursorToBatchStart(t *testing.T) {
	f := newBatchFixture()
	f.kv.values[storage.KeyLastProcessDaily] = "2026-03-09T07:30:00Z"

	err := f.svc.Run(context.Background(), RunOptions{Frequency: notification.FrequencyDaily})
	require.NoError(t, err)

	assert.Equal(t, "2026-03-10T07:30:00Z", f.kv.values[storage.KeyLastProcessDaily])
}

func TestRunCursorAdvancesEvenWhenSubmissionsFail(t *testing.T) {
	f := newBatchFixture()
	f.subs.subs[1] = &subscriber.Subscriber{ID: 1}
	f.queue.errs = []error{fmt.Errorf("channel closed"), fmt.Errorf("channel closed")}

	err := f.svc.Run(context.Background(), RunOptions{Frequency: notification.FrequencyDaily})
	require.NoError(t, err)

	assert.Empty(t, f.queue.submissions)
	assert.Equal(t, "2026-03-10T07:30:00Z", f.kv.values[storage.KeyLastProcessDaily],
		"the cursor records enumeration, not delivery")
}

func TestRunRetriesSubmissionOnceAfterPause(t *testing.T) {
	f := newBatchFixture()
	f.subs.subs[1] = &subscriber.Subscriber{ID: 1}
	f.queue.errs = []error{fmt.Errorf("backpressure"), nil}

	err := f.svc.Run(context.Background(), RunOptions{Frequency: notification.FrequencyDaily})
	require.NoError(t, err)

	require.Len(t, f.queue.submissions, 1)
	assert.Equal(t, []time.Duration{backpressureDelay}, f.slept)
}

func TestRunDefaultsCursorToEpoch(t *testing.T) {
	f := newBatchFixture()
	// No stored cursor and no override: the run should still complete
	// and write a fresh cursor.
	err := f.svc.Run(context.Background(), RunOptions{Frequency: notification.FrequencyWeekly})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10T07:30:00Z", f.kv.values[storage.KeyLastProcessWeekly])
}

func TestRunSinceOverrideSkipsCursorRead(t *testing.T) {
	f := newBatchFixture()
	err := f.svc.Run(context.Background(), RunOptions{
		Frequency: notification.FrequencyDaily,
		Since:     "not-a-date",
	})
	assert.Error(t, err)
	assert.Empty(t, f.kv.values, "a failed run must not move the cursor")
}

func TestRunExplicitUsersBypassEnumeration(t *testing.T) {
	f := newBatchFixture()
	f.ident.idsByEmail = map[string]int64{"reader@example.org": 7}

	err := f.svc.Run(context.Background(), RunOptions{
		Frequency:  notification.FrequencyDaily,
		UserIDs:    []int64{42},
		Emails:     []string{"reader@example.org", "unknown@example.org"},
		TestSendTo: "curator@example.org",
	})
	require.NoError(t, err)

	require.Len(t, f.queue.submissions, 2)
	assert.Equal(t, int64(42), f.queue.submissions[0].Task.UserID)
	assert.Equal(t, int64(7), f.queue.submissions[1].Task.UserID)
	for _, s := range f.queue.submissions {
		assert.True(t, s.Task.Force, "explicitly targeted tasks always force")
		assert.Equal(t, "curator@example.org", s.Task.TestSendTo)
	}
	assert.Empty(t, f.kv.values, "targeted runs must not touch the cursor")
}

func TestRunNotifiesAdminAtStartAndEnd(t *testing.T) {
	f := newBatchFixture()

	err := f.svc.Run(context.Background(), RunOptions{
		Frequency:  notification.FrequencyDaily,
		AdminEmail: "ops@example.org",
	})
	require.NoError(t, err)

	require.Len(t, f.mailer.sent, 2)
	assert.Contains(t, f.mailer.sent[0].Subject, "started")
	assert.Contains(t, f.mailer.sent[1].Subject, "finished")
	assert.Equal(t, "ops@example.org", f.mailer.sent[0].Recipient)
}

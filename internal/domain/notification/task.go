package notification

import (
	"context"
	"time"
)

// Task is the unit of work routed through the queue: one notification
// attempt for one subscriber. Tasks are treated as immutable; a
// reschedule publishes a copy with exactly one retry counter
// incremented.
type Task struct {
	TaskID    string    `json:"task_id,omitempty"`
	UserID    int64     `json:"userid"`
	Frequency Frequency `json:"frequency"`

	// Force bypasses the already-sent-today gate.
	Force bool `json:"force,omitempty"`
	// TestSendTo overrides the recipient address; used for targeted
	// reprocessing and testing.
	TestSendTo string `json:"test_send_to,omitempty"`
	// TestBibcode, when set, triggers the index-freshness probe before
	// any queries are executed.
	TestBibcode string `json:"test_bibcode,omitempty"`

	// Independent retry counters, one per failure class.
	Retries      int `json:"retries,omitempty"`       // setup fetch
	SolrRetries  int `json:"solr_retries,omitempty"`  // freshness probe
	QueryRetries int `json:"query_retries,omitempty"` // per-query fetch
	SendRetries  int `json:"send_retries,omitempty"`  // mail delivery
}

func (t Task) WithSetupRetry() Task {
	t.Retries++
	return t
}

func (t Task) WithSolrRetry() Task {
	t.SolrRetries++
	return t
}

func (t Task) WithQueryRetry() Task {
	t.QueryRetries++
	return t
}

func (t Task) WithSendRetry() Task {
	t.SendRetries++
	return t
}

// Submitter enqueues a task for processing after an optional delay.
// At-least-once delivery is assumed.
type Submitter interface {
	Submit(ctx context.Context, task Task, delay time.Duration) error
}

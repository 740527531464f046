package ops

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus instruments.
type Metrics struct {
	Registry *prometheus.Registry

	TasksProcessed *prometheus.CounterVec // label: outcome
	TaskRetries    *prometheus.CounterVec // label: class
	EmailsSent     prometheus.Counter
	BatchRuns      *prometheus.CounterVec // label: frequency
}

// Task outcome label values.
const (
	OutcomeSent      = "sent"
	OutcomeSkipped   = "skipped"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
)

// Retry class label values, one per failure class.
const (
	RetrySetup = "setup"
	RetryIndex = "index"
	RetryQuery = "query"
	RetrySend  = "send"
)

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		TasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_tasks_processed_total",
			Help: "Notification tasks processed, by terminal outcome.",
		}, []string{"outcome"}),
		TaskRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_task_retries_total",
			Help: "Task reschedules, by failure class.",
		}, []string{"class"}),
		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_emails_sent_total",
			Help: "Notification emails delivered.",
		}),
		BatchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_batch_runs_total",
			Help: "Batch driver fan-out passes, by cadence.",
		}, []string{"frequency"}),
	}

	m.Registry.MustRegister(m.TasksProcessed, m.TaskRetries, m.EmailsSent, m.BatchRuns)
	return m
}

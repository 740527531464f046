package subscriber

import (
	"context"
	"time"

	"scholar_notification_pipeline/internal/domain/notification"
)

// Repository defines the operations for persisting and retrieving Subscriber records.
type Repository interface {
	// Upsert creates the subscriber if it does not exist (with null
	// last-sent timestamps) and returns the stored row. Idempotent.
	Upsert(ctx context.Context, id int64) (*Subscriber, error)
	GetByID(ctx context.Context, id int64) (*Subscriber, error)
	// ListPending returns IDs whose last-sent timestamp for the cadence
	// is unset or older than the given instant.
	ListPending(ctx context.Context, freq notification.Frequency, before time.Time) ([]int64, error)
	// SetLastSent records a confirmed delivery for the cadence.
	SetLastSent(ctx context.Context, id int64, freq notification.Frequency, sentAt time.Time) error
}

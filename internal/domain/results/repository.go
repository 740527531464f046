package results

import (
	"context"
	"time"
)

// Repository defines operations for StoredResult batches.
type Repository interface {
	// ListCreatedBefore returns batches for the key created strictly
	// before the cutoff (outside the dedup window).
	ListCreatedBefore(ctx context.Context, subscriberID int64, key QueryKey, cutoff time.Time) ([]*StoredResult, error)
	// ListCreatedSince returns batches for the key created at or after
	// the cutoff (inside the dedup window).
	ListCreatedSince(ctx context.Context, subscriberID int64, key QueryKey, cutoff time.Time) ([]*StoredResult, error)
	Insert(ctx context.Context, r *StoredResult) error
}

package identity

import (
	"context"
	"time"
)

// Client is the external user-account service.
type Client interface {
	// UsersSince returns IDs of users created or updated since the given time.
	UsersSince(ctx context.Context, since time.Time) ([]int64, error)
	// UserEmail returns the registered email address for a user ID.
	UserEmail(ctx context.Context, userID int64) (string, error)
	// UserIDByEmail resolves an email address to a user ID.
	UserIDByEmail(ctx context.Context, email string) (int64, error)
}

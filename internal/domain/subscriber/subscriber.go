package subscriber

import (
	"database/sql"
	"time"
)

// Subscriber is a notification recipient. The ID is the external
// identity-service user ID; rows are created lazily on first task
// execution and never deleted by this subsystem.
type Subscriber struct {
	ID             int64
	Created        time.Time
	LastSentDaily  sql.NullTime
	LastSentWeekly sql.NullTime
}

package results

import (
	"fmt"
	"time"
)

// ErrInvalidQueryKey is returned when a QueryKey does not carry exactly
// one discriminator.
var ErrInvalidQueryKey = fmt.Errorf("query key must carry exactly one of qid or setup id")

// QueryKey identifies the query a stored batch belongs to: either a
// persistent saved query (string QID) or a templated query (numeric
// setup ID). Exactly one must be populated.
type QueryKey struct {
	QID     string
	SetupID int64
}

func ForQID(qid string) QueryKey {
	return QueryKey{QID: qid}
}

func ForSetupID(id int64) QueryKey {
	return QueryKey{SetupID: id}
}

func (k QueryKey) Validate() error {
	if (k.QID == "") == (k.SetupID == 0) {
		return ErrInvalidQueryKey
	}
	return nil
}

// StoredResult is one previously-delivered batch of result identifiers
// for a (subscriber, query) pair. Rows are append-only; aging out of
// the dedup window is implicit via the Created filter on read.
type StoredResult struct {
	ID           int64
	SubscriberID int64
	Key          QueryKey
	ResultIDs    []string
	Created      time.Time
}

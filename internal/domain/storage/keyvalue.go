package storage

import "context"

// Cursor keys recording the last successful batch-driver run boundary,
// one per cadence.
const (
	KeyLastProcessDaily  = "last.process.daily"
	KeyLastProcessWeekly = "last.process.weekly"
)

// KeyValue stores a persistent key/value pair.
type KeyValue struct {
	Key   string
	Value string
}

// Repository defines operations for the key-value cursor store.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	// Put inserts or overwrites the value under key.
	Put(ctx context.Context, key, value string) error
}

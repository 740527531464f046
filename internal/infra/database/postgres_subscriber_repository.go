package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scholar_notification_pipeline/internal/domain/notification"
	"scholar_notification_pipeline/internal/domain/subscriber"
)

// Custom errors
var ErrSubscriberNotFound = fmt.Errorf("subscriber not found")

type PostgresSubscriberRepository struct {
	db *sql.DB
}

func NewPostgresSubscriberRepository(db *sql.DB) *PostgresSubscriberRepository {
	return &PostgresSubscriberRepository{db: db}
}

// Upsert lazily creates the subscriber row; an existing row is left
// untouched. Runs inside a transaction so the insert-then-read pair is
// atomic.
func (r *PostgresSubscriberRepository) Upsert(ctx context.Context, id int64) (*subscriber.Subscriber, error) {
	s := &subscriber.Subscriber{}
	err := WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO subscribers (id, created) VALUES ($1, NOW())
              ON CONFLICT (id) DO NOTHING`, id)
		if err != nil {
			return fmt.Errorf("error upserting subscriber: %w", err)
		}

		query := `SELECT id, created, last_sent_daily, last_sent_weekly
                   FROM subscribers WHERE id = $1`
		if err := tx.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Created, &s.LastSentDaily, &s.LastSentWeekly); err != nil {
			return fmt.Errorf("error reading upserted subscriber: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresSubscriberRepository) GetByID(ctx context.Context, id int64) (*subscriber.Subscriber, error) {
	query := `SELECT id, created, last_sent_daily, last_sent_weekly
               FROM subscribers WHERE id = $1`
	s := &subscriber.Subscriber{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Created, &s.LastSentDaily, &s.LastSentWeekly)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("error getting subscriber by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresSubscriberRepository) ListPending(ctx context.Context, freq notification.Frequency, before time.Time) ([]int64, error) {
	query := fmt.Sprintf(`SELECT id FROM subscribers
               WHERE %s IS NULL OR %s < $1 ORDER BY id`, lastSentColumn(freq), lastSentColumn(freq))

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("error listing pending subscribers: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning pending subscriber: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending subscribers: %w", err)
	}
	return ids, nil
}

func (r *PostgresSubscriberRepository) SetLastSent(ctx context.Context, id int64, freq notification.Frequency, sentAt time.Time) error {
	query := fmt.Sprintf(`UPDATE subscribers SET %s = $1 WHERE id = $2 RETURNING id`, lastSentColumn(freq))
	var updated int64
	err := r.db.QueryRowContext(ctx, query, sentAt, id).Scan(&updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrSubscriberNotFound
		}
		return fmt.Errorf("error updating last sent for subscriber %d: %w", id, err)
	}
	return nil
}

// lastSentColumn maps a cadence to its column. Frequencies are
// validated at task intake, so an unknown value falls back to daily.
func lastSentColumn(freq notification.Frequency) string {
	if freq == notification.FrequencyWeekly {
		return "last_sent_weekly"
	}
	return "last_sent_daily"
}

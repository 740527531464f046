package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scholar_notification_pipeline/internal/domain/results"

	"github.com/lib/pq" // For pq.Array and driver registration
)

type PostgresResultsRepository struct {
	db *sql.DB
}

func NewPostgresResultsRepository(db *sql.DB) *PostgresResultsRepository {
	return &PostgresResultsRepository{db: db}
}

func (r *PostgresResultsRepository) ListCreatedBefore(ctx context.Context, subscriberID int64, key results.QueryKey, cutoff time.Time) ([]*results.StoredResult, error) {
	return r.listByKey(ctx, subscriberID, key, "created < $3", cutoff)
}

func (r *PostgresResultsRepository) ListCreatedSince(ctx context.Context, subscriberID int64, key results.QueryKey, cutoff time.Time) ([]*results.StoredResult, error) {
	return r.listByKey(ctx, subscriberID, key, "created >= $3", cutoff)
}

func (r *PostgresResultsRepository) listByKey(ctx context.Context, subscriberID int64, key results.QueryKey, createdCond string, cutoff time.Time) ([]*results.StoredResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	keyCond := "qid = $2"
	keyArg := interface{}(key.QID)
	if key.QID == "" {
		keyCond = "setup_id = $2"
		keyArg = key.SetupID
	}

	query := fmt.Sprintf(`SELECT id, subscriber_id, qid, setup_id, result_ids, created
               FROM stored_results
               WHERE subscriber_id = $1 AND %s AND %s
               ORDER BY created`, keyCond, createdCond)

	rows, err := r.db.QueryContext(ctx, query, subscriberID, keyArg, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error querying stored results: %w", err)
	}
	defer rows.Close()
	return scanStoredResults(rows)
}

func (r *PostgresResultsRepository) Insert(ctx context.Context, sr *results.StoredResult) error {
	if err := sr.Key.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO stored_results (subscriber_id, qid, setup_id, result_ids, created)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id`
	var qid sql.NullString
	if sr.Key.QID != "" {
		qid = sql.NullString{String: sr.Key.QID, Valid: true}
	}
	var setupID sql.NullInt64
	if sr.Key.SetupID != 0 {
		setupID = sql.NullInt64{Int64: sr.Key.SetupID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query, sr.SubscriberID, qid, setupID, pq.Array(sr.ResultIDs), sr.Created).Scan(&sr.ID)
	if err != nil {
		return fmt.Errorf("error inserting stored results: %w", err)
	}
	return nil
}

func scanStoredResults(rows *sql.Rows) ([]*results.StoredResult, error) {
	batches := make([]*results.StoredResult, 0)
	for rows.Next() {
		sr := &results.StoredResult{}
		var qid sql.NullString
		var setupID sql.NullInt64
		if err := rows.Scan(&sr.ID, &sr.SubscriberID, &qid, &setupID, pq.Array(&sr.ResultIDs), &sr.Created); err != nil {
			return nil, fmt.Errorf("error scanning stored result row: %w", err)
		}
		sr.Key = results.QueryKey{QID: qid.String, SetupID: setupID.Int64}
		batches = append(batches, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stored result rows: %w", err)
	}
	return batches, nil
}

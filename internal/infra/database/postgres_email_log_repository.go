package database

import (
	"context"
	"database/sql"
	"fmt"

	"strengths_manager/internal/domain/campaign"
)

type PostgresEmailLogRepository struct {
	db *sql.DB
}

func NewPostgresEmailLogRepository(db *sql.DB) *PostgresEmailLogRepository {
	return &PostgresEmailLogRepository{db: db}
}

func (r *PostgresEmailLogRepository) Create(ctx context.Context, e *campaign.EmailLog) error {
	query := `INSERT INTO email_logs (id, user_id, email_type, email_subject, week_number, provider_id, status, error_message, sent_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9::timestamptz, NOW()))
               RETURNING sent_at`
	var sentAt sql.NullTime
	if !e.CreatedAt.IsZero() {
		sentAt = sql.NullTime{Time: e.CreatedAt, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query, e.ID, e.UserID, e.Type, e.Subject, e.WeekNumber,
		e.ProviderID, e.Status, e.ErrorMessage, sentAt).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating email log: %w", err)
	}
	return nil
}

// ListByUser returns the newest entries first.
func (r *PostgresEmailLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*campaign.EmailLog, error) {
	query := `SELECT id, user_id, email_type, email_subject, week_number, provider_id, status, error_message, sent_at
               FROM email_logs WHERE user_id = $1 ORDER BY sent_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying email logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*campaign.EmailLog, 0)
	for rows.Next() {
		e := &campaign.EmailLog{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Subject, &e.WeekNumber, &e.ProviderID,
			&e.Status, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning email log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating email log rows: %w", err)
	}
	return entries, nil
}

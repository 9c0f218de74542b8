// internal/infra/database/postgres_subscription_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"strengths_manager/internal/domain/campaign"

	"github.com/lib/pq"
)

type PostgresSubscriptionRepository struct {
	db *sql.DB
}

func NewPostgresSubscriptionRepository(db *sql.DB) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, email_type, is_active, weekly_email_count, timezone,
       previous_openers, previous_personal_tips, previous_team_members, previous_subject_patterns, previous_quote_sources,
       last_sent_at, created_at, updated_at`

func scanSubscription(row interface{ Scan(dest ...any) error }) (*campaign.Subscription, error) {
	s := &campaign.Subscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.Type, &s.IsActive, &s.WeekCount, &s.Timezone,
		pq.Array(&s.History.Openers), pq.Array(&s.History.PersonalTips), pq.Array(&s.History.TeamMembers),
		pq.Array(&s.History.SubjectPatterns), pq.Array(&s.History.QuoteSources),
		&s.LastSentAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresSubscriptionRepository) Find(ctx context.Context, userID string, t campaign.CampaignType) (*campaign.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM email_subscriptions WHERE user_id = $1 AND email_type = $2`
	s, err := scanSubscription(r.db.QueryRowContext(ctx, query, userID, t))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, campaign.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("error getting subscription: %w", err)
	}
	return s, nil
}

func (r *PostgresSubscriptionRepository) Upsert(ctx context.Context, s *campaign.Subscription) error {
	query := `INSERT INTO email_subscriptions (user_id, email_type, is_active, weekly_email_count, timezone,
                   previous_openers, previous_personal_tips, previous_team_members, previous_subject_patterns, previous_quote_sources,
                   last_sent_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
               ON CONFLICT ON CONSTRAINT email_subscriptions_user_type_unique DO UPDATE
               SET is_active = EXCLUDED.is_active,
                   weekly_email_count = EXCLUDED.weekly_email_count,
                   timezone = EXCLUDED.timezone,
                   previous_openers = EXCLUDED.previous_openers,
                   previous_personal_tips = EXCLUDED.previous_personal_tips,
                   previous_team_members = EXCLUDED.previous_team_members,
                   previous_subject_patterns = EXCLUDED.previous_subject_patterns,
                   previous_quote_sources = EXCLUDED.previous_quote_sources,
                   last_sent_at = EXCLUDED.last_sent_at,
                   updated_at = NOW()
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.UserID, s.Type, s.IsActive, s.WeekCount, s.Timezone,
		pq.Array(s.History.Openers), pq.Array(s.History.PersonalTips), pq.Array(s.History.TeamMembers),
		pq.Array(s.History.SubjectPatterns), pq.Array(s.History.QuoteSources), s.LastSentAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting subscription: %w", err)
	}
	return nil
}

func (r *PostgresSubscriptionRepository) ListActive(ctx context.Context, t campaign.CampaignType) ([]*campaign.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM email_subscriptions
               WHERE email_type = $1 AND is_active ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("error querying active subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]*campaign.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning subscription row: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}
	return subs, nil
}

// UpdateIfWeekCount writes s only while the stored row is active and still at expectedWeekCount.
// The condition lives in the WHERE clause so two writers can never both advance the same week.
func (r *PostgresSubscriptionRepository) UpdateIfWeekCount(ctx context.Context, s *campaign.Subscription, expectedWeekCount int) error {
	query := `UPDATE email_subscriptions
               SET is_active = $1, weekly_email_count = $2,
                   previous_openers = $3, previous_personal_tips = $4, previous_team_members = $5,
                   previous_subject_patterns = $6, previous_quote_sources = $7,
                   last_sent_at = $8, updated_at = NOW()
               WHERE user_id = $9 AND email_type = $10 AND is_active AND weekly_email_count = $11
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, s.IsActive, s.WeekCount,
		pq.Array(s.History.Openers), pq.Array(s.History.PersonalTips), pq.Array(s.History.TeamMembers),
		pq.Array(s.History.SubjectPatterns), pq.Array(s.History.QuoteSources),
		s.LastSentAt, s.UserID, s.Type, expectedWeekCount,
	).Scan(&s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return campaign.ErrSubscriptionNotFound
		}
		return fmt.Errorf("error updating subscription: %w", err)
	}
	return nil
}

func (r *PostgresSubscriptionRepository) Deactivate(ctx context.Context, userID string, t campaign.CampaignType) error {
	res, err := r.db.ExecContext(ctx, `UPDATE email_subscriptions SET is_active = FALSE, updated_at = NOW()
               WHERE user_id = $1 AND email_type = $2`, userID, t)
	if err != nil {
		return fmt.Errorf("error deactivating subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deactivated subscription: %w", err)
	}
	if n == 0 {
		return campaign.ErrSubscriptionNotFound
	}
	return nil
}

// CountActiveByWeek returns the number of active subscriptions of type t per sent-week count.
func (r *PostgresSubscriptionRepository) CountActiveByWeek(ctx context.Context, t campaign.CampaignType) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT weekly_email_count, COUNT(*) FROM email_subscriptions
               WHERE email_type = $1 AND is_active GROUP BY weekly_email_count`, t)
	if err != nil {
		return nil, fmt.Errorf("error counting active subscriptions: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var week, n int
		if err := rows.Scan(&week, &n); err != nil {
			return nil, fmt.Errorf("error scanning subscription count row: %w", err)
		}
		counts[week] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription count rows: %w", err)
	}
	return counts, nil
}

// internal/domain/campaign/repository.go
package campaign

import (
	"context"
)

// Repository persists subscriptions. Every read and write is scoped to a single
// (userID, campaignType) row.
type Repository interface {
	Find(ctx context.Context, userID string, t CampaignType) (*Subscription, error)
	// Upsert inserts the subscription or overwrites the existing row for (UserID, Type).
	Upsert(ctx context.Context, sub *Subscription) error
	ListActive(ctx context.Context, t CampaignType) ([]*Subscription, error)
	// UpdateIfWeekCount writes sub only if the stored row is active and still has
	// expectedWeekCount. It returns ErrSubscriptionNotFound otherwise.
	UpdateIfWeekCount(ctx context.Context, sub *Subscription, expectedWeekCount int) error
	// Deactivate sets is_active to false. It returns ErrSubscriptionNotFound if no row exists.
	Deactivate(ctx context.Context, userID string, t CampaignType) error
}

// LogRepository stores email log entries.
type LogRepository interface {
	Create(ctx context.Context, entry *EmailLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*EmailLog, error)
}

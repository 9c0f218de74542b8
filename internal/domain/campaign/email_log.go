// internal/domain/campaign/email_log.go
package campaign

import (
	"database/sql"
	"time"
)

// EmailLog records one send attempt or skip for monitoring.
// Corresponds to the 'email_logs' table.
type EmailLog struct {
	ID           string
	UserID       string
	Type         CampaignType
	Subject      string
	WeekNumber   sql.NullInt32
	ProviderID   sql.NullString // Message id reported by the email provider
	Status       DeliveryStatus
	ErrorMessage sql.NullString
	CreatedAt    time.Time
}

package telegram

import (
	"context"
	"fmt"

	"strengths_manager/internal/app"
	"strengths_manager/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// AdminTickReporter messages the admin chat after every campaign tick.
type AdminTickReporter struct {
	client  telegram.Client
	adminID int64
	logger  *logrus.Entry
}

func NewAdminTickReporter(client telegram.Client, adminID int64, logger *logrus.Entry) *AdminTickReporter {
	return &AdminTickReporter{client: client, adminID: adminID, logger: logger}
}

func (r *AdminTickReporter) ReportTick(_ context.Context, summary app.TickSummary, err error) {
	text := summary.String()
	if err != nil {
		text = fmt.Sprintf("Campaign tick failed: %v", err)
	}
	if sendErr := r.client.SendMessage(r.adminID, text, nil); sendErr != nil {
		r.logger.WithError(sendErr).WithField("admin_id", r.adminID).Error("Failed to send tick summary to admin")
	}
}

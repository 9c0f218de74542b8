package email

import (
	"context"

	"strengths_manager/internal/domain/mail"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MockProvider logs emails instead of sending them. Used for local development.
type MockProvider struct {
	logger *logrus.Entry
}

func NewMockProvider(logger *logrus.Entry) *MockProvider {
	return &MockProvider{logger: logger}
}

func (m *MockProvider) Send(_ context.Context, msg mail.Message) (string, error) {
	id := uuid.NewString()
	m.logger.WithFields(logrus.Fields{
		"to":          msg.To,
		"subject":     msg.Subject,
		"body_length": len(msg.HTML),
		"message_id":  id,
	}).Info("MOCK EMAIL")
	return id, nil
}

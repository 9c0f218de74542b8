// Package email delivers rendered emails through Resend, Mailjet or a logging mock.
package email

import (
	"fmt"
	"net/http"
	"time"

	"strengths_manager/internal/domain/mail"
	"strengths_manager/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// defaultHTTPTimeout bounds a single provider request.
const defaultHTTPTimeout = 30 * time.Second

// NewSender picks the provider named by EMAIL_PROVIDER.
func NewSender(cfg *config.AppConfig, logger *logrus.Entry) (mail.Sender, error) {
	logger = logger.WithField("provider", cfg.EmailProvider)
	switch cfg.EmailProvider {
	case config.EmailProviderResend:
		return NewResendProvider(cfg.ResendAPIKey, cfg.EmailFrom, &http.Client{Timeout: defaultHTTPTimeout}, logger), nil
	case config.EmailProviderMailjet:
		return NewMailjetProvider(cfg.MailjetPublicKey, cfg.MailjetPrivateKey, cfg.EmailFrom, logger), nil
	case config.EmailProviderMock:
		return NewMockProvider(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}

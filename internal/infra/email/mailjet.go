package email

import (
	"context"
	"fmt"
	"time"

	"strengths_manager/internal/domain/mail"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
	mailjet "github.com/mailjet/mailjet-apiv3-go"
	"github.com/sirupsen/logrus"
)

// MailjetProvider sends emails through the Mailjet v3.1 send API.
type MailjetProvider struct {
	fromAddr   string
	retryDelay time.Duration
	send       func(*mailjet.MessagesV31) error
	logger     *logrus.Entry
}

func NewMailjetProvider(publicKey, privateKey, fromAddr string, logger *logrus.Entry) *MailjetProvider {
	clt := mailjet.NewMailjetClient(publicKey, privateKey)
	return &MailjetProvider{
		fromAddr:   fromAddr,
		retryDelay: time.Second,
		send: func(msgs *mailjet.MessagesV31) error {
			_, err := clt.SendMailV31(msgs)
			return err
		},
		logger: logger,
	}
}

// Send returns a locally generated id; it is logged alongside the Mailjet request for correlation.
func (p *MailjetProvider) Send(ctx context.Context, msg mail.Message) (string, error) {
	info := []mailjet.InfoMessagesV31{
		{
			From: &mailjet.RecipientV31{Email: p.fromAddr, Name: "Strengths Manager"},
			To: &mailjet.RecipientsV31{
				mailjet.RecipientV31{Email: msg.To},
			},
			Subject:  msg.Subject,
			HTMLPart: msg.HTML,
		},
	}

	id := uuid.NewString()
	log := p.logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject, "message_id": id})
	err := retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return retry.Unrecoverable(err)
			}
			return p.send(&mailjet.MessagesV31{Info: info})
		},
		retry.Attempts(3),
		retry.Delay(p.retryDelay),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(p.retryDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.WithField("attempt", n).WithError(err).Info("Retrying Mailjet email send after error")
		}),
	)
	if err != nil {
		return "", fmt.Errorf("after retries: %w", err)
	}
	log.Info("Mailjet email sent")
	return id, nil
}

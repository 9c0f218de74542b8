package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"strengths_manager/internal/domain/mail"

	"github.com/codeGROOVE-dev/retry"
	"github.com/sirupsen/logrus"
)

const resendEndpoint = "https://api.resend.com/emails"

// ResendProvider sends emails via the Resend HTTP API.
type ResendProvider struct {
	apiKey     string
	fromAddr   string
	endpoint   string
	retryDelay time.Duration
	client     *http.Client
	logger     *logrus.Entry
}

func NewResendProvider(apiKey, fromAddr string, client *http.Client, logger *logrus.Entry) *ResendProvider {
	return &ResendProvider{
		apiKey:     apiKey,
		fromAddr:   fromAddr,
		endpoint:   resendEndpoint,
		retryDelay: time.Second,
		client:     client,
		logger:     logger,
	}
}

type resendSendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendSendResponse struct {
	ID string `json:"id"`
}

// Send posts the message and returns the Resend message id.
// Network errors, 429 and 5xx are retried; other 4xx responses are not.
func (p *ResendProvider) Send(ctx context.Context, msg mail.Message) (string, error) {
	body, err := json.Marshal(resendSendRequest{
		From:    p.fromAddr,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	log := p.logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject})
	var id string
	err = retry.Do(
		func() error {
			startTime := time.Now()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+p.apiKey)

			resp, err := p.client.Do(req)
			if err != nil {
				log.WithError(err).Warn("Resend API request failed")
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					log.WithError(closeErr).Warn("Failed to close response body")
				}
			}()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				statusErr := fmt.Errorf("resend returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
				if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(statusErr)
				}
				log.WithField("status_code", resp.StatusCode).Warn("Resend API returned non-2xx status")
				return statusErr
			}

			var out resendSendResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			id = out.ID

			log.WithFields(logrus.Fields{
				"message_id":  id,
				"duration_ms": time.Since(startTime).Milliseconds(),
			}).Info("Resend API request completed")
			return nil
		},
		retry.Attempts(3),
		retry.Delay(p.retryDelay),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(p.retryDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.WithField("attempt", n).WithError(err).Info("Retrying Resend email send after error")
		}),
	)
	if err != nil {
		return "", fmt.Errorf("after retries: %w", err)
	}
	return id, nil
}
